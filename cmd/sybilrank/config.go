package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nbd-wtf/go-nostr"
	"github.com/vertex-lab/sybilrank/pkg/community"
	"github.com/vertex-lab/sybilrank/pkg/models"
	"github.com/vertex-lab/sybilrank/pkg/nostrgraph"
	"github.com/vertex-lab/sybilrank/pkg/sybilrank"
	"github.com/vertex-lab/sybilrank/pkg/utils/logger"
)

type SystemConfig struct {
	Log         *logger.Aggregate
	LogWriter   io.Writer
	EventsFile  string
	Relays      []string // only used if EventsFile is not specified
	SeedPubkeys []string
	Algorithm   string
	RandomSeed  uint64
	RedisAddr   string // results are saved only if specified
	RunID       string
	PrintLowest int
	MetricsFile string // metrics are written only if specified
}

// The configuration parameters for the system and the main processes.
type Config struct {
	SystemConfig
	Import    nostrgraph.Options
	Crawl     nostrgraph.CrawlConfig
	Community community.Config
	Rank      sybilrank.Config
}

func NewSystemConfig() SystemConfig {
	return SystemConfig{
		LogWriter:   os.Stdout,
		Algorithm:   sybilrank.NameSybilRank,
		RandomSeed:  0,
		RunID:       "latest",
		PrintLowest: 10,
	}
}

// NewConfig() returns a config with default parameters.
func NewConfig() *Config {
	return &Config{
		SystemConfig: NewSystemConfig(),
		Crawl:        nostrgraph.NewCrawlConfig(),
		Community:    community.NewConfig(),
		Rank:         sybilrank.NewConfig(),
	}
}

func (c SystemConfig) Print() {
	fmt.Println("System:")
	fmt.Printf("  LogWriter: %T\n", c.LogWriter)
	fmt.Printf("  EventsFile: %s\n", c.EventsFile)
	fmt.Printf("  Relays: %v\n", c.Relays)
	fmt.Printf("  SeedPubkeys: %v\n", c.SeedPubkeys)
	fmt.Printf("  Algorithm: %s\n", c.Algorithm)
	fmt.Printf("  RandomSeed: %d\n", c.RandomSeed)
	fmt.Printf("  RedisAddr: %s\n", c.RedisAddr)
	fmt.Printf("  RunID: %s\n", c.RunID)
	fmt.Printf("  PrintLowest: %d\n", c.PrintLowest)
	fmt.Printf("  MetricsFile: %s\n", c.MetricsFile)
}

func (c *Config) Print() {
	c.SystemConfig.Print()
	fmt.Println("Import:")
	fmt.Printf("  MutualOnly: %t\n", c.Import.MutualOnly)
	fmt.Printf("  VerifySignatures: %t\n", c.Import.VerifySignatures)
	c.Crawl.Print()
	c.Community.Print()
	c.Rank.Print()
}

// Validate() returns an error wrapping models.ErrConfiguration if the config can't be used for a run.
func (c *Config) Validate() error {
	if c.EventsFile == "" && len(c.Relays) == 0 {
		return fmt.Errorf("%w: either EVENTS_FILE or RELAYS is required", models.ErrConfiguration)
	}

	if c.EventsFile == "" {
		if err := c.Crawl.Validate(); err != nil {
			return err
		}
	}

	if len(c.SeedPubkeys) == 0 {
		return fmt.Errorf("%w: SEED_PUBKEYS is required", models.ErrConfiguration)
	}

	if c.Algorithm != sybilrank.NameSybilRank && c.Algorithm != sybilrank.NameGroupSybilRank {
		return fmt.Errorf("%w: unknown algorithm %q", models.ErrConfiguration, c.Algorithm)
	}

	if c.RedisAddr != "" && c.RunID == "" {
		return fmt.Errorf("%w: RUN_ID can't be empty when REDIS_ADDR is set", models.ErrConfiguration)
	}

	if err := c.Community.Validate(); err != nil {
		return err
	}

	return c.Rank.Validate()
}

// LoadConfig() reads the optional .env file, then reads the variables from the
// enviroment and parses them into a config struct.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %v", err)
	}

	var config = NewConfig()
	var err error

	for _, item := range os.Environ() {
		keyVal := strings.SplitN(item, "=", 2)
		key, val := keyVal[0], keyVal[1]

		switch key {
		case "LOGS":
			// LogWriter gets updated if a .log file is specified; otherwise it remains os.Stdout
			if strings.HasSuffix(val, ".log") {
				config.LogWriter, err = os.OpenFile(val, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
				if err != nil {
					return nil, fmt.Errorf("error opening file \"%v\": %v", val, err)
				}
			}

		case "EVENTS_FILE":
			config.EventsFile = val

		case "RELAYS":
			relays := strings.Split(val, ",")
			for _, rel := range relays {
				if !nostr.IsValidRelayURL(rel) {
					return nil, fmt.Errorf("%w: relay \"%s\" is not a valid url", models.ErrConfiguration, rel)
				}
			}

			config.Relays = relays

		case "CRAWL_DEPTH":
			config.Crawl.Depth, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "CRAWL_BATCH_SIZE":
			config.Crawl.BatchSize, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "CRAWL_MAX_EVENTS":
			config.Crawl.MaxEvents, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "SEED_PUBKEYS":
			pubkeys := strings.Split(val, ",")
			for _, pk := range pubkeys {
				if !nostr.IsValidPublicKey(pk) {
					return nil, fmt.Errorf("%w: pubkey %s is not valid", models.ErrConfiguration, pk)
				}
			}

			config.SeedPubkeys = pubkeys

		case "MUTUAL_ONLY":
			config.Import.MutualOnly, err = strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "VERIFY_SIGNATURES":
			config.Import.VerifySignatures, err = strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "ALGORITHM":
			config.Algorithm = val

		case "MIN_DEGREE":
			config.Rank.MinDegree, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "ACCUMULATIVE":
			config.Rank.Accumulative, err = strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "WEAKEN_UNDER_MIN":
			config.Rank.WeakenUnderMin, err = strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "GROUP_EDGE_WEIGHT":
			config.Rank.GroupEdgeWeight, err = strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "NONLINEAR_DISTRIBUTION":
			config.Rank.NonlinearDistribution, err = strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "NONLINEAR_EXPONENT":
			config.Rank.NonlinearExponent, err = strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "ROUND_FACTOR":
			config.Rank.RoundFactor, err = strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "ROUNDS":
			config.Rank.Rounds, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "WORKERS":
			config.Rank.Workers, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "NUM_SEED_GROUPS":
			config.Community.NumSeedGroups, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "MIN_RATIO":
			config.Community.MinRatio, err = strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "MAX_RATIO":
			config.Community.MaxRatio, err = strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "NUM_JOINT_NODE":
			config.Community.NumJointNodes, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "RANDOM_SEED":
			config.RandomSeed, err = strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "REDIS_ADDR":
			config.RedisAddr = val

		case "RUN_ID":
			config.RunID = val

		case "PRINT_LOWEST":
			config.PrintLowest, err = strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("error parsing %v: %v", keyVal, err)
			}

		case "METRICS_FILE":
			config.MetricsFile = val
		}
	}

	config.Log = logger.New(config.LogWriter)
	config.Rank.Log = config.Log
	config.Crawl.Log = config.Log
	return config, nil
}

// CloseLogs() closes the config.LogWriter if that is a file.
func (c *Config) CloseLogs() {
	if file, ok := c.LogWriter.(*os.File); ok && file != os.Stdout {
		file.Close()
	}
}
