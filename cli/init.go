package cli

import (
	"fmt"

	actx "go.hackfix.me/portcullis/app/context"
	aerrors "go.hackfix.me/portcullis/app/errors"
)

// The Init command creates the rule database, and writes the configuration
// file with default values.
type Init struct{}

// Run the init command.
func (c *Init) Run(appCtx *actx.Context) error {
	if appCtx.VersionInit != "" {
		return aerrors.NewWith(
			fmt.Sprintf("portcullis is already initialized with version %s", appCtx.VersionInit))
	}

	err := appCtx.DB.Init(appCtx.Version.Semantic, appCtx.Logger)
	if err != nil {
		return aerrors.NewWithCause("failed initializing database", err)
	}

	if err = appCtx.Config.Save(); err != nil {
		return aerrors.NewWithCause("failed saving configuration", err, "path", appCtx.Config.Path())
	}

	return nil
}
