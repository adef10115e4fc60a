// Package config loads vortexd's configuration from the environment via
// viper and wires the coordinator's concrete infrastructure, the same
// env-driven Config-struct-as-composition-root shape as the teacher's
// internal/config/config.go, narrowed to this spec's single badger store,
// single tx builder, and single live store (no pluggable backend
// alternatives exist yet, so Validate has no supportedType table beyond
// network).
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	badger "github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vortexlabs/vortexd/internal/core/application"
	"github.com/vortexlabs/vortexd/internal/core/ports"
	badgerdb "github.com/vortexlabs/vortexd/internal/infrastructure/db/badger"
	"github.com/vortexlabs/vortexd/internal/infrastructure/feeoracle"
	inmemorylivestore "github.com/vortexlabs/vortexd/internal/infrastructure/live-store/inmemory"
	"github.com/vortexlabs/vortexd/internal/infrastructure/keymanager"
	"github.com/vortexlabs/vortexd/internal/infrastructure/nodewallet"
	"github.com/vortexlabs/vortexd/internal/infrastructure/txbuilder"
)

var supportedNetworks = supportedType{
	"mainnet": {},
	"testnet": {},
	"regtest": {},
	"signet":  {},
}

type Config struct {
	Name     string
	Datadir  string
	Network  string
	Listen   string
	LogLevel int

	HDSeedHex string

	NodeRPCHost       string
	NodeRPCUser       string
	NodeRPCPass       string
	NodeRPCDisableTLS bool
	EsploraURL        string
	Regtest           bool

	CoordinatorAddress string

	InputScriptType  string
	ChangeScriptType string
	OutputScriptType string

	MinRemixPeers int
	MinNewPeers   int
	MaxPeers      int

	RoundAmount    uint64
	CoordinatorFee uint64

	RoundInterval          int64
	InputRegistrationTime  int64
	OutputRegistrationTime int64
	SigningTime            int64

	BadInputsBanDuration        int64
	InvalidSignatureBanDuration int64

	repoManager ports.RepoManager
	keyManager  ports.KeyManager
	chainClient ports.ChainClient
	feeOracle   ports.FeeOracle
	txBuilder   ports.TxBuilder
	liveStore   ports.LiveStore
	svc         application.Service
	adminSvc    application.AdminService
	params      *chaincfg.Params
}

func (c *Config) String() string {
	clone := *c
	if clone.NodeRPCPass != "" {
		clone.NodeRPCPass = "••••••"
	}
	if clone.HDSeedHex != "" {
		clone.HDSeedHex = "••••••"
	}
	out, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error marshalling config: %s", err)
	}
	return string(out)
}

var (
	Name     = "NAME"
	Datadir  = "DATADIR"
	Network  = "NETWORK"
	Listen   = "LISTEN"
	LogLevel = "LOG_LEVEL"

	HDSeed = "HD_SEED"

	NodeRPCHost       = "NODE_RPC_HOST"
	NodeRPCUser       = "NODE_RPC_USER"
	NodeRPCPass       = "NODE_RPC_PASS"
	NodeRPCDisableTLS = "NODE_RPC_DISABLE_TLS"
	EsploraURL        = "ESPLORA_URL"
	Regtest           = "REGTEST"

	CoordinatorAddress = "COORDINATOR_ADDRESS"

	InputScriptType  = "INPUT_SCRIPT_TYPE"
	ChangeScriptType = "CHANGE_SCRIPT_TYPE"
	OutputScriptType = "OUTPUT_SCRIPT_TYPE"

	MinRemixPeers = "MIN_REMIX_PEERS"
	MinNewPeers   = "MIN_NEW_PEERS"
	MaxPeers      = "MAX_PEERS"

	RoundAmount    = "ROUND_AMOUNT"
	CoordinatorFee = "COORDINATOR_FEE"

	RoundInterval          = "ROUND_INTERVAL"
	InputRegistrationTime  = "INPUT_REGISTRATION_TIME"
	OutputRegistrationTime = "OUTPUT_REGISTRATION_TIME"
	SigningTime            = "SIGNING_TIME"

	BadInputsBanDuration        = "BAD_INPUTS_BAN_DURATION"
	InvalidSignatureBanDuration = "INVALID_SIGNATURE_BAN_DURATION"

	defaultDatadir                        = defaultDatadirPath()
	defaultListen                         = "0.0.0.0:9735"
	defaultNetwork                        = "testnet"
	defaultLogLevel                       = 4
	defaultEsploraURL                     = "https://blockstream.info/testnet/api"
	defaultInputScriptType                = "WITNESS_V0_KEYHASH"
	defaultChangeScriptType               = "WITNESS_V0_KEYHASH"
	defaultOutputScriptType               = "WITNESS_V0_KEYHASH"
	defaultMinRemixPeers                  = 0
	defaultMinNewPeers                    = 2
	defaultMaxPeers                       = 20
	defaultCoordinatorFee                 = 500
	defaultRoundInterval            int64 = 60
	defaultInputRegistrationTime    int64 = 60
	defaultOutputRegistrationTime   int64 = 60
	defaultSigningTime              int64 = 60
	defaultBadInputsBanDuration         int64 = 3600
	defaultInvalidSignatureBanDuration  int64 = 86400
)

func defaultDatadirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vortexd"
	}
	return filepath.Join(home, ".vortexd")
}

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("VORTEXD")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Listen, defaultListen)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(EsploraURL, defaultEsploraURL)
	viper.SetDefault(InputScriptType, defaultInputScriptType)
	viper.SetDefault(ChangeScriptType, defaultChangeScriptType)
	viper.SetDefault(OutputScriptType, defaultOutputScriptType)
	viper.SetDefault(MinRemixPeers, defaultMinRemixPeers)
	viper.SetDefault(MinNewPeers, defaultMinNewPeers)
	viper.SetDefault(MaxPeers, defaultMaxPeers)
	viper.SetDefault(CoordinatorFee, defaultCoordinatorFee)
	viper.SetDefault(RoundInterval, defaultRoundInterval)
	viper.SetDefault(InputRegistrationTime, defaultInputRegistrationTime)
	viper.SetDefault(OutputRegistrationTime, defaultOutputRegistrationTime)
	viper.SetDefault(SigningTime, defaultSigningTime)
	viper.SetDefault(BadInputsBanDuration, defaultBadInputsBanDuration)
	viper.SetDefault(InvalidSignatureBanDuration, defaultInvalidSignatureBanDuration)

	if err := makeDirectoryIfNotExists(viper.GetString(Datadir)); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	return &Config{
		Name:                        viper.GetString(Name),
		Datadir:                     viper.GetString(Datadir),
		Network:                     viper.GetString(Network),
		Listen:                      viper.GetString(Listen),
		LogLevel:                    viper.GetInt(LogLevel),
		HDSeedHex:                   viper.GetString(HDSeed),
		NodeRPCHost:                 viper.GetString(NodeRPCHost),
		NodeRPCUser:                 viper.GetString(NodeRPCUser),
		NodeRPCPass:                 viper.GetString(NodeRPCPass),
		NodeRPCDisableTLS:           viper.GetBool(NodeRPCDisableTLS),
		EsploraURL:                  viper.GetString(EsploraURL),
		Regtest:                     viper.GetBool(Regtest),
		CoordinatorAddress:          viper.GetString(CoordinatorAddress),
		InputScriptType:             viper.GetString(InputScriptType),
		ChangeScriptType:            viper.GetString(ChangeScriptType),
		OutputScriptType:            viper.GetString(OutputScriptType),
		MinRemixPeers:               viper.GetInt(MinRemixPeers),
		MinNewPeers:                 viper.GetInt(MinNewPeers),
		MaxPeers:                    viper.GetInt(MaxPeers),
		RoundAmount:                 viper.GetUint64(RoundAmount),
		CoordinatorFee:              viper.GetUint64(CoordinatorFee),
		RoundInterval:               viper.GetInt64(RoundInterval),
		InputRegistrationTime:       viper.GetInt64(InputRegistrationTime),
		OutputRegistrationTime:      viper.GetInt64(OutputRegistrationTime),
		SigningTime:                 viper.GetInt64(SigningTime),
		BadInputsBanDuration:        viper.GetInt64(BadInputsBanDuration),
		InvalidSignatureBanDuration: viper.GetInt64(InvalidSignatureBanDuration),
	}, nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0o755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedNetworks.supports(c.Network) {
		return fmt.Errorf("network not supported, please select one of: %s", supportedNetworks)
	}
	if c.RoundAmount == 0 {
		return fmt.Errorf("round amount must be greater than 0")
	}
	if c.MaxPeers <= 0 {
		return fmt.Errorf("max peers must be greater than 0")
	}
	if c.MinRemixPeers+c.MinNewPeers <= 0 {
		return fmt.Errorf("minRemixPeers + minNewPeers must be greater than 0")
	}
	if c.CoordinatorAddress == "" {
		return fmt.Errorf("coordinator address must be set")
	}
	if len(c.HDSeedHex) == 0 {
		return fmt.Errorf("hd seed must be set")
	}

	c.params = networkParams(c.Network)

	if err := c.repoManagerService(); err != nil {
		return err
	}
	if err := c.keyManagerService(); err != nil {
		return err
	}
	if err := c.chainClientService(); err != nil {
		return err
	}
	c.feeOracleService()
	c.txBuilderService()
	c.liveStoreService()
	if err := c.appService(); err != nil {
		return err
	}
	c.adminService()
	return nil
}

func networkParams(network string) *chaincfg.Params {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "signet":
		return &chaincfg.SigNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}

func (c *Config) repoManagerService() error {
	dbDir := filepath.Join(c.Datadir, "db")
	logger := log.New()
	repoManager, err := badgerdb.NewRepoManager(dbDir, false, badgerLogger{logger})
	if err != nil {
		return fmt.Errorf("failed to open data store: %w", err)
	}
	c.repoManager = repoManager
	return nil
}

func (c *Config) keyManagerService() error {
	seed, err := hex.DecodeString(c.HDSeedHex)
	if err != nil {
		return fmt.Errorf("invalid hd seed: %w", err)
	}
	km, err := keymanager.NewKeyManager(seed, c.params)
	if err != nil {
		return fmt.Errorf("failed to initialize key manager: %w", err)
	}
	c.keyManager = km
	return nil
}

func (c *Config) chainClientService() error {
	client, err := nodewallet.New(nodewallet.Config{
		Host:         c.NodeRPCHost,
		User:         c.NodeRPCUser,
		Pass:         c.NodeRPCPass,
		DisableTLS:   c.NodeRPCDisableTLS,
		HTTPPostMode: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to bitcoin node: %w", err)
	}
	c.chainClient = client
	return nil
}

func (c *Config) feeOracleService() {
	c.feeOracle = feeoracle.New(c.EsploraURL, c.chainClient, c.Regtest)
}

func (c *Config) txBuilderService() {
	c.txBuilder = txbuilder.NewBuilder(c.params)
}

func (c *Config) liveStoreService() {
	c.liveStore = inmemorylivestore.NewLiveStore()
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.keyManager, c.repoManager, c.txBuilder, c.chainClient, c.feeOracle, c.liveStore,
		application.Config{
			CoordinatorAddress:          c.CoordinatorAddress,
			RoundInterval:               time.Duration(c.RoundInterval) * time.Second,
			InputRegistrationTime:       time.Duration(c.InputRegistrationTime) * time.Second,
			OutputRegistrationTime:      time.Duration(c.OutputRegistrationTime) * time.Second,
			SigningTime:                 time.Duration(c.SigningTime) * time.Second,
			MinRemixPeers:               c.MinRemixPeers,
			MinNewPeers:                 c.MinNewPeers,
			MaxPeers:                    c.MaxPeers,
			RoundAmount:                 c.RoundAmount,
			CoordinatorFee:              c.CoordinatorFee,
			BadInputsBanDuration:        time.Duration(c.BadInputsBanDuration) * time.Second,
			InvalidSignatureBanDuration: time.Duration(c.InvalidSignatureBanDuration) * time.Second,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to build coordinator service: %w", err)
	}
	c.svc = svc
	return nil
}

func (c *Config) adminService() {
	c.adminSvc = application.NewAdminService(c.repoManager)
}

func (c *Config) AppService() application.Service {
	return c.svc
}

func (c *Config) AdminService() application.AdminService {
	return c.adminSvc
}

func (c *Config) RepoManager() ports.RepoManager {
	return c.repoManager
}

// badgerLogger adapts logrus to badger.Logger, the same narrow shim the
// teacher passes its *log.Logger through as.
type badgerLogger struct {
	*log.Logger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Logger.Warnf(format, args...)
}

var _ badger.Logger = badgerLogger{}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
