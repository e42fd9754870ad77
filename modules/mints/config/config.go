package config

import (
	"time"

	"github.com/minterscan/mint-indexer/internal/postgres"
	"github.com/minterscan/mint-indexer/modules/mints/export"
	"github.com/minterscan/mint-indexer/modules/mints/extractor"
	"github.com/minterscan/mint-indexer/modules/mints/txbuilder"
)

type Config struct {
	Database   string                     `mapstructure:"database"` // Database to store mint descriptors. `postgres` | `memory`
	Postgres   postgres.Config            `mapstructure:"postgres"`
	Foundation extractor.FoundationConfig `mapstructure:"foundation"`
	Zora       extractor.ZoraConfig       `mapstructure:"zora"`
	TxBuilder  txbuilder.Config           `mapstructure:"tx_builder"`
	Export     export.Config              `mapstructure:"export"`

	// IpfsGateway rewrites content-addressed allowlist URIs to a fetchable
	// HTTP gateway.
	IpfsGateway string `mapstructure:"ipfs_gateway"`

	// PollInterval is how often due refresh jobs are claimed from the queue.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// RefreshInterval is how often collections that still have open
	// descriptors are re-enqueued for a refresh.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// JobBatchSize bounds how many refresh jobs one poll claims.
	JobBatchSize int32 `mapstructure:"job_batch_size"`
}
