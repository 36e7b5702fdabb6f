package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// NetworkConfig : per network endpoints, keys and fee parameters
type NetworkConfig struct {
	RPCURL             string  `mapstructure:"rpcURL"  yaml:"rpcURL,omitempty"`
	WSURL              string  `mapstructure:"wsURL"  yaml:"wsURL,omitempty"`
	GRPCURL            string  `mapstructure:"grpcURL"  yaml:"grpcURL,omitempty"`
	GRPCInsecure       bool    `mapstructure:"grpcInsecure"  yaml:"grpcInsecure,omitempty"`
	APIKey             string  `mapstructure:"apiKey"  yaml:"apiKey,omitempty"`
	ChainID            int64   `mapstructure:"chainID"  yaml:"chainID,omitempty"`
	TokenContract      string  `mapstructure:"tokenContract"  yaml:"tokenContract,omitempty"`
	TreasuryAddress    string  `mapstructure:"treasuryAddress"  yaml:"treasuryAddress,omitempty"`
	TreasuryPrivateKey string  `mapstructure:"treasuryPrivateKey"  yaml:"treasuryPrivateKey,omitempty"`
	MasterSeed         string  `mapstructure:"masterSeed"  yaml:"masterSeed,omitempty"`
	GasLimitNative     uint64  `mapstructure:"gasLimitNative"  yaml:"gasLimitNative,omitempty"`
	GasLimitToken      uint64  `mapstructure:"gasLimitToken"  yaml:"gasLimitToken,omitempty"`
	NativeFee          float64 `mapstructure:"nativeFee"  yaml:"nativeFee,omitempty"`
	TokenFee           float64 `mapstructure:"tokenFee"  yaml:"tokenFee,omitempty"`
	TokenFeeLimit      int64   `mapstructure:"tokenFeeLimit"  yaml:"tokenFeeLimit,omitempty"`
	PollInterval       int64   `mapstructure:"pollInterval"  yaml:"pollInterval,omitempty"`
}

//Data : config data
type Data struct {
	AppPort             string        `mapstructure:"appPort"  yaml:"appPort,omitempty"`
	ServiceName         string        `mapstructure:"serviceName"  yaml:"serviceName,omitempty"`
	Environment         string        `mapstructure:"environment"  yaml:"environment,omitempty"`
	LogLevel            string        `mapstructure:"logLevel"  yaml:"logLevel,omitempty"`
	WorkerID            string        `mapstructure:"workerID"  yaml:"workerID,omitempty"`
	DBUser              string        `mapstructure:"dbUser"  yaml:"dbUser,omitempty"`
	DBPassword          string        `mapstructure:"dbPassword"  yaml:"dbPassword,omitempty"`
	DBHost              string        `mapstructure:"dbHost"  yaml:"dbHost,omitempty"`
	DBName              string        `mapstructure:"dbName"  yaml:"dbName,omitempty"`
	DBMigrationPath     string        `mapstructure:"dbMigrationPath"  yaml:"dbMigrationPath,omitempty"`
	MaxIdleConns        int           `mapstructure:"maxIdleConns"  yaml:"maxIdleConns,omitempty"`
	MaxOpenConns        int           `mapstructure:"maxOpenConns"  yaml:"maxOpenConns,omitempty"`
	ConnMaxLifetime     int           `mapstructure:"connMaxLifetime"  yaml:"connMaxLifetime,omitempty"`
	RequestTimeout      int64         `mapstructure:"requestTimeout"  yaml:"requestTimeout,omitempty"`
	PurgeCacheInterval  time.Duration `mapstructure:"purgeCacheInterval"  yaml:"purgeCacheInterval,omitempty"`
	ExpireCacheDuration time.Duration `mapstructure:"expireCacheDuration"  yaml:"expireCacheDuration,omitempty"`
	LockerBackend       string        `mapstructure:"lockerBackend"  yaml:"lockerBackend,omitempty"`
	RedisAddress        string        `mapstructure:"redisAddress"  yaml:"redisAddress,omitempty"`
	RedisPassword       string        `mapstructure:"redisPassword"  yaml:"redisPassword,omitempty"`
	LockerPrefix        string        `mapstructure:"lockerPrefix"  yaml:"lockerPrefix,omitempty"`
	SweepLockTTL        int64         `mapstructure:"sweepLockTTL"  yaml:"sweepLockTTL,omitempty"`
	SweepTimeout        int64         `mapstructure:"sweepTimeout"  yaml:"sweepTimeout,omitempty"`
	PrefundTimeout      int64         `mapstructure:"prefundTimeout"  yaml:"prefundTimeout,omitempty"`
	WatchGracePeriod    int64         `mapstructure:"watchGracePeriod"  yaml:"watchGracePeriod,omitempty"`
	RateSourceURL       string        `mapstructure:"rateSourceURL"  yaml:"rateSourceURL,omitempty"`
	RateRefreshSpec     string        `mapstructure:"rateRefreshSpec"  yaml:"rateRefreshSpec,omitempty"`
	RecheckSpec         string        `mapstructure:"recheckSpec"  yaml:"recheckSpec,omitempty"`
	SentryDSN           string        `mapstructure:"sentryDSN"  yaml:"sentryDSN,omitempty"`
	Ethereum            NetworkConfig `mapstructure:"ethereum"  yaml:"ethereum,omitempty"`
	Tron                NetworkConfig `mapstructure:"tron"  yaml:"tron,omitempty"`
}

// secrets are never expected in config.yaml, only in the environment or .env
var secrets = []string{
	"dbPassword",
	"redisPassword",
	"sentryDSN",
	"ethereum.treasuryPrivateKey",
	"ethereum.masterSeed",
	"tron.treasuryPrivateKey",
	"tron.masterSeed",
	"tron.apiKey",
}

//Init : initialize data
func (c *Data) Init(configDir string) {

	dir, dirErr := os.Getwd()
	if dirErr != nil {
		log.Printf("Cannot set default input/output directory to the current working directory >> %s", dirErr)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file >> %s", err)
	}

	viper.SetEnvPrefix("ccs") // CCS_ETHEREUM_MASTERSEED, CCS_APPPORT ...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("appPort")
	viper.BindEnv("workerID")
	for _, key := range secrets {
		viper.BindEnv(key)
	}
	setDefaults()

	viper.SetConfigName("config")
	viper.AddConfigPath("../")
	viper.AddConfigPath(dir)
	viper.AddConfigPath(configDir)
	viper.WatchConfig()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			panic(fmt.Errorf("\n Configuration file not found >>%s ", err))
		} else {
			panic(fmt.Errorf("\n fatal error: could not read from config file >>%s ", err))
		}
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if err := viper.ReadInConfig(); err != nil {
			log.Printf("Could not reload config file %s >> %s", e.Name, err)
			return
		}
		viper.Unmarshal(c)
		log.Println("Config file changed:", e.Name)
	})

	viper.Unmarshal(c)
	log.Println("App configuration loaded successfully!")
}

func setDefaults() {
	viper.SetDefault("appPort", "9000")
	viper.SetDefault("serviceName", "crypto-collector")
	viper.SetDefault("logLevel", "INFO")
	viper.SetDefault("requestTimeout", 60)
	viper.SetDefault("purgeCacheInterval", 60)
	viper.SetDefault("expireCacheDuration", 300)
	viper.SetDefault("lockerBackend", "memory")
	viper.SetDefault("lockerPrefix", "crypto-collector-lock-")
	viper.SetDefault("sweepLockTTL", 120)
	viper.SetDefault("sweepTimeout", 90)
	viper.SetDefault("prefundTimeout", 180)
	viper.SetDefault("watchGracePeriod", 3600)
	viper.SetDefault("rateRefreshSpec", "@every 1m")
	viper.SetDefault("recheckSpec", "@every 5m")
	viper.SetDefault("ethereum.gasLimitNative", 21000)
	viper.SetDefault("ethereum.gasLimitToken", 65000)
	viper.SetDefault("ethereum.pollInterval", 15)
	viper.SetDefault("tron.nativeFee", 1.1)
	viper.SetDefault("tron.tokenFee", 15)
	viper.SetDefault("tron.tokenFeeLimit", 30000000)
	viper.SetDefault("tron.pollInterval", 10)
}

// Seconds ... converts a seconds setting into a duration, falling back when unset
func Seconds(value int64, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}
