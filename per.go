package wmedium

//
// Per-rate error probability
//

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// perRateCount is the number of rates in the legacy OFDM rate set
// and therefore the number of columns in a PER matrix row.
const perRateCount = 8

// rateTable maps rate indices to rates in units of 100 kbps.
var rateTable = [perRateCount]int{60, 90, 120, 180, 240, 360, 480, 540}

// indexToRate returns the rate for the given index in 100 kbps units.
// Out-of-range indices clamp to the table bounds. The frequency is
// accepted for symmetry with the wire format; the legacy rate set is
// the same on both bands.
func indexToRate(idx int, freq uint32) int {
	if idx < 0 {
		idx = 0
	}
	if idx >= perRateCount {
		idx = perRateCount - 1
	}
	return rateTable[idx]
}

// perRefFrameLen is the frame length the PER curves are taken at;
// other lengths scale the per-attempt probability accordingly.
const perRefFrameLen = 1024

// perRow is one row of a PER table: the packet error rate of each
// rate at one SNR.
type perRow struct {
	// snr is the row's SNR in dB.
	snr int

	// per is the packet error rate per rate index.
	per [perRateCount]float64
}

// PERModel computes per-attempt error probabilities from SNR. The
// zero value is invalid; use [defaultPERModel] or [LoadPERFile].
type PERModel struct {
	// rows is the PER table, ordered by strictly increasing SNR.
	rows []perRow
}

// defaultRateSNR is the built-in SNR window per rate: at or below
// floor the rate always fails, at or above clear it always succeeds,
// with linear interpolation in between.
var defaultRateSNR = [perRateCount]struct{ floor, clear int }{
	{1, 5},   //  6 Mbps
	{3, 7},   //  9 Mbps
	{5, 9},   // 12 Mbps
	{8, 12},  // 18 Mbps
	{12, 16}, // 24 Mbps
	{16, 20}, // 36 Mbps
	{20, 24}, // 48 Mbps
	{23, 27}, // 54 Mbps
}

// defaultPERModel builds the built-in PER table, one row per dB from
// -10 dB to 30 dB.
func defaultPERModel() *PERModel {
	model := &PERModel{}
	for snr := -10; snr <= 30; snr++ {
		row := perRow{snr: snr}
		for idx, window := range defaultRateSNR {
			switch {
			case snr <= window.floor:
				row.per[idx] = 1.0
			case snr >= window.clear:
				row.per[idx] = 0.0
			default:
				row.per[idx] = float64(window.clear-snr) /
					float64(window.clear-window.floor)
			}
		}
		model.rows = append(model.rows, row)
	}
	return model
}

// LoadPERFile reads a PER table from a file. Each non-comment line is
// an SNR in dB followed by eight packet error rates, one per rate in
// the legacy rate set, with rows in increasing SNR order.
func LoadPERFile(path string) (*PERModel, error) {
	filep, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer filep.Close()

	model := &PERModel{}
	scanner := bufio.NewScanner(filep)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != perRateCount+1 {
			return nil, fmt.Errorf("wmedium: per file %s:%d: want %d columns, got %d",
				path, lineno, perRateCount+1, len(fields))
		}
		snr, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("wmedium: per file %s:%d: bad snr: %w", path, lineno, err)
		}
		row := perRow{snr: snr}
		for idx, field := range fields[1:] {
			per, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("wmedium: per file %s:%d: bad rate: %w", path, lineno, err)
			}
			if per < 0 || per > 1 {
				return nil, fmt.Errorf("wmedium: per file %s:%d: rate out of range", path, lineno)
			}
			row.per[idx] = per
		}
		if len(model.rows) > 0 && snr <= model.rows[len(model.rows)-1].snr {
			return nil, fmt.Errorf("wmedium: per file %s:%d: rows must have increasing snr", path, lineno)
		}
		model.rows = append(model.rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(model.rows) == 0 {
		return nil, fmt.Errorf("wmedium: per file %s: no rows", path)
	}
	return model, nil
}

// errorProb returns the probability that a single transmission
// attempt of frameLen bytes at the given rate fails at the given SNR.
func (m *PERModel) errorProb(snr float64, rateIdx int, frameLen int) float64 {
	if rateIdx < 0 || rateIdx >= perRateCount {
		return 1.0
	}

	first, last := m.rows[0], m.rows[len(m.rows)-1]
	var per float64
	switch {
	case snr <= float64(first.snr):
		per = first.per[rateIdx]
	case snr >= float64(last.snr):
		per = last.per[rateIdx]
	default:
		// linear interpolation between the surrounding rows
		hi := 1
		for hi < len(m.rows) && float64(m.rows[hi].snr) < snr {
			hi++
		}
		lo := hi - 1
		frac := (snr - float64(m.rows[lo].snr)) /
			float64(m.rows[hi].snr-m.rows[lo].snr)
		per = m.rows[lo].per[rateIdx] +
			frac*(m.rows[hi].per[rateIdx]-m.rows[lo].per[rateIdx])
	}

	// curves are taken at the reference length; scale the success
	// probability with the relative frame length
	if per > 0 && per < 1 {
		per = 1 - math.Pow(1-per, float64(frameLen)/perRefFrameLen)
	}
	return per
}
