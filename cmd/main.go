package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	arlo "github.com/tchellomello/go-arlo"
)

// ArloConfig is read from config.toml, then overlaid with ARLO_* env vars.
type ArloConfig struct {
	Username string
	Password string
}

func main() {
	mode := flag.String("m", "", "Mode: arm|disarm|status|library")
	configPath := flag.String("c", "config.toml", "Path to config file")
	verbose := flag.Bool("v", false, "Verbose")
	flag.Parse()

	config := ArloConfig{}

	if content, err := os.ReadFile(*configPath); err == nil {
		if _, err := toml.Decode(string(content), &config); err != nil {
			log.Fatal(err)
		}
	}
	if err := envconfig.Process("arlo", &config); err != nil {
		log.Fatal(err)
	}
	if config.Username == "" || config.Password == "" {
		log.Fatal("username and password are required (config.toml or ARLO_USERNAME/ARLO_PASSWORD)")
	}

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := run(config, *mode); err != nil {
		log.Fatal(err)
	}
}

func run(config ArloConfig, mode string) error {
	a := arlo.NewClient(config.Username, config.Password)

	if err := a.Login(); err != nil {
		log.Println("Login failed")
		return err
	}
	log.Println("Login OK")

	if err := a.GetDevices(); err != nil {
		return err
	}

	bs, err := a.GetBasestation()
	if err != nil {
		log.Println("GetBasestation failed")
		return err
	}

	switch mode {
	case "arm":
		err = bs.SetMode("armed")
	case "disarm":
		err = bs.SetMode("disarmed")
	case "status":
		err = printStatus(bs)
	case "library":
		err = printLibrary(a)
	default:
		fmt.Println("Invalid mode")
	}
	if err != nil {
		return err
	}

	return a.Logout()
}

func printStatus(bs *arlo.BaseStation) error {
	mode, err := bs.Mode()
	if err != nil {
		fmt.Println("Mode: unknown")
	} else {
		fmt.Println("Mode:", mode)
	}

	levels, err := bs.BatteryLevels()
	if err != nil {
		return nil
	}
	for serial, level := range levels {
		fmt.Printf("Camera %s: battery %d%%\n", serial, level)
	}
	return nil
}

func printLibrary(a *arlo.Client) error {
	videos, err := a.MediaLibrary.Load(arlo.LoadOptions{Days: 7})
	if err != nil {
		return err
	}
	for _, video := range videos {
		fmt.Printf("%s %s %ds (%s)\n",
			video.Camera().Name(),
			video.CreatedAt().Format("2006-01-02 15:04:05"),
			video.MediaDurationSeconds(),
			video.TriggeredBy())
	}
	return nil
}
