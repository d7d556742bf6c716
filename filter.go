package wmedium

//
// Frame drop filters
//

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterAction is the verdict of matching a frame against a filter.
type FilterAction int

const (
	// FilterPass lets the frame through.
	FilterPass = FilterAction(iota)

	// FilterDrop drops the frame before it is queued.
	FilterDrop
)

// FilterType selects which frames a filter applies to.
type FilterType int

const (
	// FilterTypeCommit matches SAE commit action frames.
	FilterTypeCommit = FilterType(iota + 1)

	// FilterTypeConfirm matches SAE confirm action frames.
	FilterTypeConfirm

	// FilterTypeAction matches any management action frame.
	FilterTypeAction
)

// Filter drops a bounded number of matching frames from one sender.
// The zero value is inert; use [ParseFilter] to construct.
type Filter struct {
	// mac is the sender the filter applies to.
	mac [6]byte

	// frameType selects the frames to drop.
	frameType FilterType

	// count is how many more frames to drop; negative means
	// unlimited, zero makes the filter inert.
	count int
}

// ParseFilter parses a filter rule of the form
// "aa:bb:cc:dd:ee:ff.{commit|confirm|action}[.count]". Without a
// count the filter drops matching frames forever.
func ParseFilter(text string) (*Filter, error) {
	fields := strings.Split(text, ".")
	if len(fields) < 2 || len(fields) > 3 {
		return nil, fmt.Errorf("wmedium: invalid filter %q", text)
	}

	filter := &Filter{count: -1}

	mac, err := parseMAC(fields[0])
	if err != nil {
		return nil, fmt.Errorf("wmedium: invalid filter %q: %w", text, err)
	}
	filter.mac = mac

	switch fields[1] {
	case "commit":
		filter.frameType = FilterTypeCommit
	case "confirm":
		filter.frameType = FilterTypeConfirm
	case "action":
		filter.frameType = FilterTypeAction
	default:
		return nil, fmt.Errorf("wmedium: unknown filter type %q", fields[1])
	}

	if len(fields) == 3 {
		count, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("wmedium: invalid filter %q: %w", text, err)
		}
		filter.count = count
	}

	return filter, nil
}

// Matches decides whether a frame from the given sender should be
// dropped. Dropping decrements the remaining count; at zero the
// filter becomes inert.
func (f *Filter) Matches(sender [6]byte, payload []byte) FilterAction {
	if f.count == 0 || f.frameType == 0 {
		return FilterPass
	}

	if sender != f.mac {
		return FilterPass
	}

	drop := false
	switch f.frameType {
	case FilterTypeCommit:
		drop = frameIsSAECommit(payload)
	case FilterTypeConfirm:
		drop = frameIsSAEConfirm(payload)
	case FilterTypeAction:
		drop = frameIsAction(payload)
	}
	if !drop {
		return FilterPass
	}

	if f.count > 0 {
		f.count--
	}
	return FilterDrop
}
