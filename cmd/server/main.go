package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vision-backend/internal/ai"
	"vision-backend/internal/audio"
	"vision-backend/internal/camera"
	"vision-backend/internal/database"
	"vision-backend/internal/mqtt"
	"vision-backend/internal/privacy"
	"vision-backend/internal/services"
	"vision-backend/pkg/config"
)

func main() {
	log.Println("Starting Vision Backend Service (Background Monitoring)...")

	// Load configuration
	cfg := config.Load()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Initialize Privacy Layer ===
	// All derived artifacts (movement events, analysis records, exported
	// frames) pass through this codec before leaving the worker.
	codec, err := privacy.NewCodecWithSalt(cfg.PrivacyPassword, cfg.PrivacySalt)
	if err != nil {
		log.Fatalf("Failed to initialize encryption: %v", err)
	}
	store := privacy.NewSecureStore(codec)

	// === Initialize Movement Detector ===
	detector := camera.NewDetector(camera.DetectorConfig{
		Sensitivity:  cfg.Sensitivity,
		MinArea:      cfg.MinArea,
		WarmupFrames: cfg.WarmupFrames,
		LearningRate: cfg.LearningRate,
		HistorySize:  cfg.HistorySize,
	})

	// === Initialize Camera Source Factory ===
	// Physical devices are probed for troubleshooting hints; capture
	// itself runs on the synthetic source until a hardware backend is
	// wired in.
	devices := camera.ListDevices()
	if len(devices) == 0 {
		log.Println("No /dev/video* devices found, using synthetic camera")
	} else {
		for _, dev := range devices {
			log.Printf("Found camera device: %s (%s)", dev.Name, dev.Path)
		}
	}
	newSource := func(index int) camera.Source {
		return camera.NewSyntheticSource(camera.DefaultSyntheticConfig())
	}

	// === Initialize AI Clients ===
	log.Println("Configuring AI services...")
	inference := ai.NewOllamaClient(ai.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaModel,
	})
	transcriber := ai.NewHTTPTranscriber(ai.TranscriberConfig{
		URL: cfg.TranscriberURL,
	})

	// === Initialize Audio Recorder ===
	var audioCh audio.Channel
	if cfg.EnableAudio {
		recorderCfg := audio.DefaultRecorderConfig()
		input := audio.NewSyntheticInput(recorderCfg.SampleRate, recorderCfg.ChunkSamples)
		audioCh = audio.NewRecorder(recorderCfg, input, transcriber)
	}

	// === Initialize ClickHouse Sink (optional) ===
	var sink services.Sink
	if cfg.ClickHouseEnabled {
		log.Println("Connecting to ClickHouse...")
		db, err := database.NewClickHouseDB(
			cfg.ClickHouseAddr,
			cfg.ClickHouseDB,
			cfg.ClickHouseUser,
			cfg.ClickHousePass,
		)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer db.Close()
		sink = db
	}

	// === Initialize MQTT (optional) ===
	var emitter services.Emitter
	var mqttClient *mqtt.Client
	var publisher *mqtt.Publisher
	if cfg.MQTTEnabled {
		log.Println("Connecting to MQTT broker...")
		mqttClient, err = mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			log.Fatalf("Failed to initialize MQTT client: %v", err)
		}
		defer mqttClient.Close()

		publisher = mqtt.NewPublisher(mqttClient.GetNativeClient(), mqtt.PublisherConfig{
			MovementTopic: cfg.MQTTTopicMovement,
			AnalysisTopic: cfg.MQTTTopicAnalysis,
		})
		go publisher.Start(ctx)
		emitter = publisher
	}

	// === Initialize Monitor Service ===
	log.Println("Initializing monitor service...")
	monitorCfg := services.DefaultMonitorConfig()
	monitorCfg.AnalysisInterval = cfg.AnalysisInterval
	monitorCfg.TranscriptionInterval = cfg.TranscriptionInterval
	monitorCfg.TranscribeDuration = cfg.TranscribeDuration

	monitor := services.NewMonitorService(
		monitorCfg,
		newSource,
		audioCh,
		detector,
		codec,
		store,
		inference,
		sink,
		emitter,
	)

	// === Initialize Remote Control (optional) ===
	if cfg.MQTTEnabled {
		subscriber := mqtt.NewControlSubscriber(mqttClient.GetNativeClient(), mqtt.ControlSubscriberConfig{
			ControlTopic:       cfg.MQTTTopicControl,
			DefaultCameraIndex: cfg.CameraIndex,
			DefaultEnableAudio: cfg.EnableAudio,
		}, monitor)
		if err := subscriber.Subscribe(); err != nil {
			log.Fatalf("Failed to subscribe to control topic: %v", err)
		}
	}

	// === Start Monitoring ===
	result := monitor.StartMonitoring(cfg.CameraIndex, cfg.EnableAudio)
	if !result.Success {
		log.Printf("Warning: monitoring did not start: %s", result.Error)
		for _, hint := range result.Troubleshooting {
			log.Printf("  hint: %s", hint)
		}
		if !cfg.MQTTEnabled {
			// No remote control path to retry from.
			log.Fatal("Monitoring failed to start and remote control is disabled")
		}
	} else {
		log.Printf("Monitoring session %s started (audio=%v)", result.SessionID, result.AudioEnabled)
	}

	// === Log startup info ===
	log.Println("=== Vision Backend Service is running ===")
	log.Printf("Analysis interval: %v, transcription interval: %v",
		cfg.AnalysisInterval, cfg.TranscriptionInterval)
	log.Printf("Detection: sensitivity=%.0f, min area=%d px, warmup=%d frames",
		cfg.Sensitivity, cfg.MinArea, cfg.WarmupFrames)
	log.Printf("Encryption: %s", privacy.Algorithm)
	if cfg.MQTTEnabled {
		log.Printf("MQTT Topics:")
		log.Printf("  - Movement: %s", cfg.MQTTTopicMovement)
		log.Printf("  - Analysis: %s", cfg.MQTTTopicAnalysis)
		log.Printf("  - Control:  %s", cfg.MQTTTopicControl)
	}
	log.Println("Press Ctrl+C to exit...")

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	log.Println("Shutdown signal received, stopping services...")

	stopResult := monitor.StopMonitoring()
	if stopResult.Success && stopResult.Stats != nil {
		log.Printf("Session summary: %d frames, %d movements, %d analyses, %d transcriptions",
			stopResult.Stats.TotalFrames,
			stopResult.Stats.MovementsDetected,
			stopResult.Stats.AIAnalyses,
			stopResult.Stats.AudioTranscriptions)
	}

	cancel() // Stop the publisher goroutine

	// Give services time to finish processing
	time.Sleep(1 * time.Second)

	log.Println("Shutdown complete. Goodbye!")
}
