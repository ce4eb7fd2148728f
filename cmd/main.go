package main

import (
	"fmt"
	"os"

	"positionkeeper/cmd/keeper"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Positionkeeper CMD"
	app.Usage = "The positionkeeper command line interface"

	app.Commands = []cli.Command{
		keeperCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var keeperCMD = cli.Command{
	Name:        "keeper",
	Usage:       "run the position keeper",
	Action:      keeperAction,
	ArgsUsage:   "",
	Flags:       []cli.Flag{},
	Description: `Run the position lifecycle keeper against the paper book`,
}

func keeperAction(_ *cli.Context) error {
	logrus.Info("Starting keeper CMD")
	logrus.WithField("cmd", "keeper")

	k := &keeper.Keeper{}
	if err := k.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
