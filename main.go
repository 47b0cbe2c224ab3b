package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v2"

	qhttp "studentperf/http"
	"studentperf/logger"
	"studentperf/ml"
	"studentperf/pipeline"
)

const (
	defaultConfigPath = "config.yaml"
	defaultModelPath  = "logistic_model.json"
)

type Config struct {
	Model struct {
		Type string `yaml:"type"`
		Path string `yaml:"path"`
	} `yaml:"model"`
	Http  qhttp.ServerConfig `yaml:"http"`
	Log   logger.Config      `yaml:"log"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
}

func defaultConfig() *Config {
	config := &Config{
		Http: qhttp.DefaultServerConfig(),
		Log:  logger.Config{Level: "info", Console: true, Dir: "logs"},
	}
	config.Model.Type = ml.LogisticRegressionType
	config.Model.Path = defaultModelPath
	config.Cache.Size = 1024
	return config
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// 1. Load config
	config, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Init logger
	sugar, err := logger.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer sugar.Sync()

	// 3. Load model; a failure leaves the service in degraded mode
	adapter := ml.NewAdapter(ml.AdapterConfig{ModelType: config.Model.Type, ModelPath: config.Model.Path}, sugar)

	service, err := pipeline.New(adapter, pipeline.WithLogger(sugar), pipeline.WithCacheSize(config.Cache.Size))
	if err != nil {
		sugar.Fatalw("failed to build prediction pipeline", "error", err)
	}

	// 4. Start HTTP server
	server := qhttp.NewServer(config.Http, service, sugar)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("HTTP server failed", "error", err)
		}
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("shutting down")

	if err := server.Stop(); err != nil {
		sugar.Errorw("server forced to shutdown", "error", err)
	}

	sugar.Info("exiting")
}

// loadConfig reads path over the defaults. A missing file is not an error.
// MODEL_PATH overrides model.path.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if modelPath := os.Getenv("MODEL_PATH"); modelPath != "" {
		config.Model.Path = modelPath
	}
	return config, nil
}
