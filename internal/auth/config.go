package auth

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config содержит настройки выпуска и проверки JWT-токенов.
type Config struct {
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`
}

func NewConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading auth config: %w", err)
	}

	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling auth config: %w", err)
	}

	if conf.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in auth config")
	}
	if conf.TokenTTLHours <= 0 {
		conf.TokenTTLHours = 24
	}

	return &conf, nil
}
