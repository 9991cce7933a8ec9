package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"drive-service/internal/capture"
	"drive-service/internal/control"
	"drive-service/internal/hardware"
	"drive-service/internal/logger"
	"drive-service/internal/messaging"
	"drive-service/internal/monitor"
	"drive-service/internal/relay"
	"drive-service/internal/telemetry"
)

func main() {
	var serviceLogLevel int
	var redisHost string
	var redisPort int
	var gpioChip string
	var serialDevice string
	var serialBaud int
	var mqttBroker string
	var signalEither bool

	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.StringVar(&redisHost, "redis-host", "127.0.0.1", "Redis host")
	flag.IntVar(&redisPort, "redis-port", 6379, "Redis port")
	flag.StringVar(&gpioChip, "gpio-chip", hardware.DefaultChip, "GPIO chip device")
	flag.StringVar(&serialDevice, "serial-dev", "", "Bridge serial device (empty disables the bridge link)")
	flag.IntVar(&serialBaud, "serial-baud", 115200, "Bridge serial baud rate")
	flag.StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL (empty disables MQTT telemetry)")
	flag.BoolVar(&signalEither, "signal-either-channel", false, "Count a fresh throttle channel as radio signal too")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))

	l.Infof("Starting drive service...")

	steering := capture.NewChannel("steering")
	if err := steering.Attach(gpioChip, hardware.SteeringInLine); err != nil {
		l.Fatalf("Failed to attach steering capture: %v", err)
	}
	defer steering.Close()

	throttle := capture.NewChannel("throttle")
	if err := throttle.Attach(gpioChip, hardware.ThrottleInLine); err != nil {
		l.Fatalf("Failed to attach throttle capture: %v", err)
	}
	defer throttle.Close()

	var rangeFinder monitor.RangeFinder
	sonar, err := hardware.NewUltrasonic(gpioChip, hardware.SonarTriggerLine, hardware.SonarEchoLine, l)
	if err != nil {
		l.Warnf("Ranging unavailable, obstacle stop disabled: %v", err)
	} else {
		rangeFinder = sonar
		defer sonar.Close()
	}

	io := hardware.NewLinuxActuatorIO(gpioChip, l)
	redisClient := messaging.NewRedisClient(redisHost, redisPort, l)

	system := control.NewDriveSystem(io, redisClient, steering, throttle,
		rangeFinder, hardware.NewBatterySource(),
		control.Config{SignalEitherChannel: signalEither}, l)

	if serialDevice != "" {
		link, err := relay.Open(serialDevice, serialBaud, system, l)
		if err != nil {
			l.Warnf("Bridge link unavailable: %v", err)
		} else {
			system.AttachRelay(link)
			defer link.Close()
		}
	}

	if mqttBroker != "" {
		publisher, err := telemetry.NewRealPublisher(mqttBroker)
		if err != nil {
			l.Warnf("MQTT telemetry unavailable: %v", err)
		} else {
			system.AttachTelemetrySink(publisher)
			defer publisher.Close()
		}
	}

	buttons, err := hardware.NewButtons(gpioChip, map[int]hardware.ButtonCallback{
		hardware.ModeButtonLine: system.HandleModeButton,
		hardware.PageButtonLine: system.HandlePageButton,
	}, l)
	if err != nil {
		l.Warnf("Buttons unavailable: %v", err)
	} else {
		defer buttons.Close()
	}

	if err := system.Start(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	system.Shutdown()
	l.Infof("Shutdown complete")
}
