package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bcaldwell/bankops/internal/config"
	"github.com/bcaldwell/bankops/internal/ofxexport"
	"github.com/bcaldwell/bankops/internal/ynabsync"
	"github.com/robfig/cron"
)

type Runner interface {
	Run() error
}

var runner Runner

func main() {
	singleRun := flag.Bool("single-run", false, "run task once (disable cron)")
	configFile := flag.String("config", "./config.yml", "configuration file")
	secretsFile := flag.String("secrets", "./secrets.ejson", "secrets file")
	help := flag.Bool("help", false, "show command help")

	flag.Parse()

	if *help {
		fmt.Println("pluggy ynab/ofx sync")
		fmt.Println("bankops [options] task")
		flag.PrintDefaults()
		return
	}

	err := config.ReadConfig("BANKOPS_CONFIG", *configFile, *secretsFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if flag.NArg() == 0 {
		fmt.Println("No task passed in")
		return
	}

	var frequency string

	switch flag.Arg(0) {
	case "sync":
		runner = ynabsync.SyncYNABRunner{}
		frequency = config.CurrentSyncConfig().UpdateFrequency
	case "export":
		runner = ofxexport.ExportOFXRunner{}
		frequency = config.CurrentExportConfig().UpdateFrequency
	default:
		fmt.Println("Unknown task:", flag.Arg(0))
		return
	}

	run()

	if *singleRun || frequency == "" {
		return
	}

	c := cron.New()
	c.AddFunc(frequency, run)

	c.Start()

	select {}

}

func run() {
	fmt.Println(time.Now().Format(time.RFC850))
	err := runner.Run()
	if err != nil {
		fmt.Println(err)
	}
}
