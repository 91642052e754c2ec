package config

import "log"

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}
