// Command uccd is the TUXEDO Computers control daemon: a system
// service exposing fan, power, and peripheral control over D-Bus.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"gopkg.in/hlandau/service.v1"

	"github.com/uccd-project/uccd/internal/buildinfo"
	"github.com/uccd-project/uccd/internal/daemon"
	"github.com/uccd-project/uccd/internal/logging"
)

func main() {
	app := cli.NewApp()
	app.Name = "uccd"
	app.Usage = "TUXEDO Computers control daemon"
	app.Version = buildinfo.Version
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	log := logging.New().WithField("component", "main")

	service.Main(&service.Info{
		Name:          "uccd",
		Title:         "TUXEDO Computers control daemon",
		Description:   "Fan, power, and peripheral control for TUXEDO laptops",
		DefaultChroot: "/",
		AllowRoot:     true,
		NewFunc: func() (service.Runnable, error) {
			return daemon.New(log), nil
		},
	})
	return nil
}
