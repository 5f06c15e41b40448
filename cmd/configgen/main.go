package main

import (
	"flag"

	"github.com/danmuck/petctl/internal/config"
	"github.com/danmuck/petctl/internal/logging"
	"github.com/rs/zerolog/log"
)

const defaultPath = "cmd/petctl/config.toml"

func main() {
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime()

	if *validate {
		if _, err := config.Load(*input); err != nil {
			log.Fatal().Err(err).Msg("configgen: validation failed")
		}
		log.Info().Str("path", *input).Msg("configgen: validated config")
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal().Err(err).Msg("configgen: write failed")
	}
	log.Info().Str("path", *output).Msg("configgen: wrote config template")
}
