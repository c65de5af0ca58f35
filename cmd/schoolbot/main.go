package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/m3rciful/schoolbot/core/buildinfo"
	corecmd "github.com/m3rciful/schoolbot/core/cmd"
	"github.com/m3rciful/schoolbot/internal/app"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("schoolbot", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to the YAML config (default: $CONFIG_PATH or configs/config.yaml)")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before the config; missing files are ignored")
	version := flags.Bool("version", false, "print the build version and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *version {
		fmt.Println(buildinfo.String())
		return nil
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", *envFile, err)
		}
	}

	return corecmd.Run(corecmd.Options{
		ConfigPath:        *configPath,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
}
