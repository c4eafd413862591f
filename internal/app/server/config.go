package server

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

func NewConfig() Config {
	var config Config

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/server")
	viper.AddConfigPath(".")

	viper.SetDefault("Server.Port", "8080")
	viper.SetDefault("Server.WriteTimeout", "10s")
	viper.SetDefault("Server.MaxMessageSize", 4096)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			panic(fmt.Errorf("fatal error config file: %s", err))
		}
	}

	config.Port = viper.GetString("Server.Port")
	writeTimeout, err := time.ParseDuration(viper.GetString("Server.WriteTimeout"))
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	config.WriteTimeout = writeTimeout
	config.MaxMessageSize = viper.GetInt64("Server.MaxMessageSize")

	return config
}
