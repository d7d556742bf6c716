// Command wmedium simulates a shared wireless medium for virtualized
// 802.11 radios.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/hwsim/wmedium"
	"github.com/spf13/pflag"
)

const version = "0.3.1"

func main() {
	configFile := pflag.StringP("config", "c", "", "input config file")
	perFile := pflag.StringP("per", "x", "", "input packet error rate file")
	logLevel := pflag.IntP("log-level", "l", 6, "RFC 5424 severity, values 0 - 7")
	timeSocket := pflag.StringP("time-socket", "t", "", "time control socket")
	vhostSocket := pflag.StringP("vhost-socket", "u", "", "expose device socket, don't use netlink")
	apiSocket := pflag.StringP("api-socket", "a", "", "expose API socket")
	pcapFile := pflag.StringP("pcap", "p", "", "dump delivered frames to a pcap file")
	forceNetlink := pflag.BoolP("force-netlink", "n", false, "force netlink use even with a device socket")
	showVersion := pflag.BoolP("version", "V", false, "print version and exit")
	showHelp := pflag.BoolP("help", "h", false, "print this help and exit")
	pflag.Parse()

	if *showHelp {
		fmt.Printf("wmedium v%s - a wireless medium simulator\n", version)
		fmt.Printf("usage: wmedium [-h] [-V] [-l LOG_LVL] [-x FILE] -c FILE\n\n")
		pflag.PrintDefaults()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Printf("wmedium v%s - a wireless medium simulator\n", version)
		os.Exit(0)
	}
	if *configFile == "" || pflag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "usage: wmedium [-h] [-V] [-l LOG_LVL] [-x FILE] -c FILE\n")
		pflag.PrintDefaults()
		os.Exit(1)
	}
	if *logLevel < 0 || *logLevel > 7 {
		log.Fatalf("invalid RFC 5424 severity level: %d", *logLevel)
	}
	log.SetLevel(apexLevel(*logLevel))

	cfg, err := wmedium.LoadConfig(*configFile)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	log.Infof("input configuration file: %s", *configFile)

	var per *wmedium.PERModel
	if *perFile != "" {
		log.Infof("input packet error rate file: %s", *perFile)
		per, err = wmedium.LoadPERFile(*perFile)
		if err != nil {
			log.WithError(err).Fatal("load per file")
		}
	}

	var capture *wmedium.Capture
	if *pcapFile != "" {
		capture, err = wmedium.NewCapture(*pcapFile)
		if err != nil {
			log.WithError(err).Fatal("create pcap file")
		}
		defer capture.Close()
	}

	var timeCtrl *wmedium.TimeControl
	if *timeSocket != "" {
		timeCtrl, err = wmedium.DialTimeControl(*timeSocket)
		if err != nil {
			log.WithError(err).Fatal("dial time control socket")
		}
		defer timeCtrl.Close()
	}

	engine, err := wmedium.NewEngine(&wmedium.EngineConfig{
		Config:      cfg,
		Logger:      log.Log,
		PER:         per,
		Capture:     capture,
		TimeControl: timeCtrl,
	})
	if err != nil {
		log.WithError(err).Fatal("create engine")
	}

	var familyID uint16
	useNetlink := *forceNetlink || *vhostSocket == ""
	if useNetlink {
		kernel, err := wmedium.DialKernel(engine, log.Log)
		if err != nil {
			log.WithError(err).Fatal("connect to radio driver")
		}
		defer kernel.Close()
		familyID = kernel.FamilyID()
		engine.AddClient(kernel)
		go func() {
			if err := kernel.Serve(); err != nil {
				log.WithError(err).Error("kernel client")
			}
		}()
	}

	if *vhostSocket != "" {
		vhost, err := wmedium.ListenVhost(engine, log.Log, *vhostSocket, familyID)
		if err != nil {
			log.WithError(err).Fatal("listen on device socket")
		}
		defer vhost.Close()
		go func() {
			if err := vhost.Serve(); err != nil {
				log.WithError(err).Debug("device socket closed")
			}
		}()
	}

	if *apiSocket != "" {
		api, err := wmedium.ListenAPI(engine, log.Log, *apiSocket, familyID)
		if err != nil {
			log.WithError(err).Fatal("listen on API socket")
		}
		defer api.Close()
		go func() {
			if err := api.Serve(); err != nil {
				log.WithError(err).Debug("API socket closed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		log.WithError(err).Fatal("engine")
	}
}

// apexLevel maps an RFC 5424 severity onto an apex/log level.
func apexLevel(severity int) log.Level {
	switch {
	case severity <= 3:
		return log.ErrorLevel
	case severity == 4:
		return log.WarnLevel
	case severity <= 6:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}
