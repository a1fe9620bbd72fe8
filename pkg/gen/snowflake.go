package gen

import (
	"vaultbooks/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("snowflake", fx.Provide(NewSnowflakeNode))

// NewSnowflakeNode returns the ID generator for this process. NODE_ID must be
// unique per replica.
func NewSnowflakeNode(cfg *config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
