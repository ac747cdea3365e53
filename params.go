package main

import (
	"strings"
	"time"

	"github.com/felina/server-contract-tests/apitests"
	"github.com/felina/server-contract-tests/config"
	"github.com/felina/server-contract-tests/configswap"
	"github.com/felina/server-contract-tests/store"

	"github.com/alessio/shellescape"
	"github.com/spf13/pflag"
)

func addRunFlags(fs *pflag.FlagSet) {
	fs.Int("port", 5000, "port the server listens on")
	fs.String("command", "", "shell command that starts the server")
	fs.String("dir", "", "working directory of the server (default: current directory)")
	fs.Duration("startup-timeout", 10*time.Second, "how long to wait for the server to become ready")
	fs.String("server-output", "", "file to append the server's output to")
	fs.String("driver", "", "store driver: mysql, postgres, or sqlite (default: from the database settings, then mysql)")
	fs.String("schema-script", "", "schema script to rebuild the test store from")
	fs.Bool("debug", false, "enable debug logging for failed tests")
	fs.Bool("debug-all", false, "enable debug logging for all tests")
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// serverCommand returns the shell command line that starts the server.
func serverCommand(s config.Server) string {
	if len(s.Args) == 0 {
		return s.Command
	}
	var b commandBuilder
	b.add(s.Args...)
	return b.String()
}

func swapSlots(cfg *config.Config) configswap.Slots {
	return configswap.Slots{Active: cfg.Swap.Active, Test: cfg.Swap.Test, Backup: cfg.Swap.Backup}
}

func storeSchema(cfg *config.Config) store.Schema {
	return store.Schema{Canonical: cfg.Store.CanonicalSchema, Test: cfg.Store.TestSchema}
}

func scenarioParams(cfg *config.Config) apitests.Params {
	return apitests.Params{
		User:          cfg.RegisterDetails,
		Project:       cfg.ProjectDetails,
		Image1:        cfg.Images.TestImage1,
		Image2:        cfg.Images.TestImage2,
		MetaDatetime:  cfg.Metadata.Datetime,
		APIVersion:    cfg.Server.APIVersion,
		SessionCookie: cfg.Server.SessionCookie,
		ProfileImage:  cfg.Server.ProfileImage,
	}
}
