package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Mongo         MongoConfig         `yaml:"mongo"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	HTTP          HTTPConfig          `yaml:"http"`
	Providers     ProvidersConfig     `yaml:"providers"`
	ProviderRetry ProviderRetryConfig `yaml:"provider_retry"`
	Quota         QuotaConfig         `yaml:"quota"`
	ImageAnalysis ImageAnalysisConfig `yaml:"image_analysis"`
	Consulting    ConsultingConfig    `yaml:"consulting"`
	TrendBus      TrendBusConfig      `yaml:"trend_bus"`
	Collector     CollectorConfig     `yaml:"collector"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	// TrendTopic 는 수집기가 트렌드 스냅샷 이벤트를 발행하는 기본 토픽 이름이다.
	TrendTopic string `yaml:"trend_topic"`
	Partitions int    `yaml:"partitions"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	// AdminToken 은 ADMIN_TOKEN 환경변수로만 받는다. 비어 있으면 관리자 라우트가 닫힌다.
	AdminToken string `yaml:"-"`
}

// ProviderConfig 는 하나의 AI 공급자 어댑터 설정이다.
// Kind 가 "gemini" 이면 genai SDK 를, "http" 이면 BaseURL+Path 로 JSON POST 를 보낸다.
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	Kind    string        `yaml:"kind"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

type ProvidersConfig struct {
	TextInsight   []ProviderConfig `yaml:"text_insight"`
	ImageAnalysis []ProviderConfig `yaml:"image_analysis"`
	// Timeout 은 개별 공급자 설정에 timeout 이 없을 때 적용되는 호출 제한 시간이다.
	Timeout time.Duration `yaml:"timeout"`
}

// ProviderRetryConfig 는 ProviderUnavailable 에 대한 재시도 정책이다.
// 기본값은 자동 재시도 없음(0)이며, 재시도 여부는 호출자가 판단한다.
type ProviderRetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

type QuotaConfig struct {
	// Backend 는 memory | mongo | redis 중 하나다.
	Backend            string `yaml:"backend"`
	DefaultFreeReports int    `yaml:"default_free_reports"`
}

type ImageAnalysisConfig struct {
	// Metered 가 true 이면 이미지 분석도 무료 리포트 한도를 차감한다.
	Metered bool `yaml:"metered"`
}

type ConsultingConfig struct {
	MaxDocuments       int `yaml:"max_documents"`
	MaxAttributeLength int `yaml:"max_attribute_length"`
}

type TrendBusConfig struct {
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	// CacheTTL 이 지나면 최신 트렌드를 저장소에서 다시 조회한다. 버스로 못 받은 스냅샷도 이 주기 안에 반영된다.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type CollectorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	FeedLimit   int           `yaml:"feed_limit"`
	RenderPages bool          `yaml:"render_pages"`
	Brands      []BrandSource `yaml:"brands"`
}

// BrandSource 는 수집 대상 브랜드 하나의 설정이다.
type BrandSource struct {
	ID           int64             `yaml:"id"`
	Name         string            `yaml:"name"`
	TrendFeedURL string            `yaml:"trend_feed_url"`
	Competitors  []CompetitorPage  `yaml:"competitors"`
	Attributes   map[string]string `yaml:"attributes"`
}

type CompetitorPage struct {
	PlaceID string  `yaml:"place_id"`
	URL     string  `yaml:"url"`
	Rank    int     `yaml:"rank"`
	Score   float64 `yaml:"score"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	config = c
}

// Parse 는 YAML 본문을 AppConfig 로 읽고 기본값과 환경변수 덮어쓰기를 적용한다.
func Parse(data []byte) (*AppConfig, error) {
	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	applyEnv(&c)
	applyDefaults(&c)
	return &c, nil
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func applyEnv(c *AppConfig) {
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.HTTP.AdminToken = v
	}
}

func applyDefaults(c *AppConfig) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "brandinsight"
	}
	if c.Kafka.TrendTopic == "" {
		c.Kafka.TrendTopic = "brand-insight.trend.events"
	}
	if c.Kafka.Partitions <= 0 {
		c.Kafka.Partitions = 3
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Providers.Timeout <= 0 {
		c.Providers.Timeout = 60 * time.Second
	}
	if c.ProviderRetry.MaxRetries < 0 {
		c.ProviderRetry.MaxRetries = 0
	}
	if c.ProviderRetry.Backoff <= 0 {
		c.ProviderRetry.Backoff = time.Second
	}
	if c.Quota.Backend == "" {
		c.Quota.Backend = "memory"
	}
	if c.Quota.DefaultFreeReports < 0 {
		c.Quota.DefaultFreeReports = 0
	}
	if c.Consulting.MaxDocuments <= 0 {
		c.Consulting.MaxDocuments = 20
	}
	if c.Consulting.MaxAttributeLength <= 0 {
		c.Consulting.MaxAttributeLength = 500
	}
	if c.TrendBus.DrainTimeout <= 0 {
		c.TrendBus.DrainTimeout = 5 * time.Second
	}
	if c.TrendBus.CacheTTL <= 0 {
		c.TrendBus.CacheTTL = time.Minute
	}
	if c.Collector.Interval <= 0 {
		c.Collector.Interval = 6 * time.Hour
	}
	if c.Collector.FeedLimit <= 0 {
		c.Collector.FeedLimit = 20
	}
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
