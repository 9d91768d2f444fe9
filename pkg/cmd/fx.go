package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		fx.Annotate(catalogCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(ready, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(migrate, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(apply, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(statusCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(reconnect, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(dev, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
