package commands

import (
	"flag"

	"github.com/m333rl1n/cdnx/internal/cache"
	"github.com/m333rl1n/cdnx/internal/config"
	"github.com/m333rl1n/cdnx/internal/log"
)

func CreateUpdateCommand() *UpdateCommand {
	return &UpdateCommand{
		fs: flag.NewFlagSet("update", flag.ExitOnError),
	}
}

// UpdateCommand forces a provider refresh regardless of cache age.
type UpdateCommand struct {
	fs  *flag.FlagSet
	cfg *config.Config
}

func (u *UpdateCommand) Name() string {
	return u.fs.Name()
}

func (u *UpdateCommand) Init(args []string, ctx *AppContext) error {
	if err := u.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	u.cfg = cfg

	return nil
}

func (u *UpdateCommand) Run() error {
	set, err := cache.New(u.cfg).Refresh()
	if err != nil {
		return err
	}

	log.Infof("Range cache updated: %d unique range(s)", set.Len())
	return nil
}
