package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"go.hackfix.me/portcullis/app/config"
	actx "go.hackfix.me/portcullis/app/context"
	aerrors "go.hackfix.me/portcullis/app/errors"
)

// CLI is the command line interface of portcullis.
type CLI struct {
	Init  Init  `kong:"cmd,help='Create the rule database and configuration.'"`
	Rule  Rule  `kong:"cmd,help='Manage stored firewall rules.'"`
	Check Check `kong:"cmd,help='Check whether the firewall rules accept a packet.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	ConfigFile string           `kong:"default='${configFile}',help='Path to the configuration file.'"`
	DataDir    string           `kong:"default='${dataDir}',help='Path to the directory where the rule database is stored.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(configFilePath, dataDir, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("portcullis"),
		kong.Description("A packet filtering rule engine."),
		kong.UsageOnError(),
		kong.DefaultEnvars("PORTCULLIS"),
		kong.NamedMapper("engine", EngineMapper{}),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"dataDir":    dataDir,
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyConfig applies configuration values to the CLI, but only if they weren't
// already set.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Check.Engine == "" && cfg.Firewall.Engine.Valid {
		c.Check.Engine = cfg.Firewall.Engine.V
	}
	if c.Check.Buckets == 0 && cfg.Firewall.Buckets.Valid {
		c.Check.Buckets = bucketsField(cfg.Firewall.Buckets.V)
	}
	if c.Check.RulesFile == "" && cfg.Firewall.RulesFile.Valid {
		c.Check.RulesFile = cfg.Firewall.RulesFile.V
	}
}

func checkInit(appCtx *actx.Context) error {
	if appCtx.VersionInit == "" {
		return aerrors.NewWith("portcullis is not initialized",
			"hint", "Did you forget to run 'portcullis init'?")
	}
	return nil
}
