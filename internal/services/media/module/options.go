package module

import (
	"time"

	"vidbrief/internal/adapters/cloudglue"
	"vidbrief/internal/adapters/rapidapi"
	"vidbrief/internal/adapters/twelvelabs"
	"vidbrief/internal/adapters/ytdlp"
	"vidbrief/internal/platform/config"
	"vidbrief/internal/services/media/cache"
	"vidbrief/internal/services/media/domain"
	"vidbrief/internal/services/media/poller"
	"vidbrief/internal/services/media/provider"
	"vidbrief/internal/services/media/service"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CachePG     = "pg"
)

// DefaultUploadTimeout bounds one multipart upload of a locally downloaded
// video; long videos on a slow uplink take minutes
const DefaultUploadTimeout = 30 * time.Minute

// Options holds everything the media module reads from the environment
type Options struct {
	DefaultProvider  string
	Service          service.Config
	PollMaxTransient int

	CacheBackend    string
	CacheMaxEntries int

	RapidAPI   rapidapi.Config
	YTDLP      ytdlp.Config
	TwelveLabs twelvelabs.Config
	TwelveCfg  provider.TwelveLabsConfig
	Cloudglue  cloudglue.Config
	CloudCfg   provider.CloudglueConfig

	// WarmTimeout bounds index and collection discovery at boot
	WarmTimeout time.Duration
}

// FromConfig reads MEDIA_, RAPIDAPI_, YTDLP_, TWELVELABS_ and CLOUDGLUE_ values
func FromConfig(cfg config.Conf) Options {
	mc := cfg.Prefix("MEDIA_")
	rc := cfg.Prefix("RAPIDAPI_")
	yc := cfg.Prefix("YTDLP_")
	tc := cfg.Prefix("TWELVELABS_")
	cc := cfg.Prefix("CLOUDGLUE_")

	return Options{
		DefaultProvider: mc.MayEnum("DEFAULT_PROVIDER", string(domain.ProviderTwelveLabs),
			string(domain.ProviderTwelveLabs), string(domain.ProviderCloudglue)),
		Service: service.Config{
			AllowDownload: mc.MayBool("ALLOW_DOWNLOAD", true),
			PollInterval:  mc.MayDuration("POLL_INTERVAL", poller.DefaultInterval),
			PollTimeout:   mc.MayDuration("POLL_TIMEOUT", poller.DefaultTimeout),
			CacheTTL:      mc.MayDuration("CACHE_TTL", service.DefaultCacheTTL),
			Dedupe:        mc.MayBool("DEDUPE", false),
			Language:      mc.MayString("LANGUAGE", provider.DefaultLanguage),
		},
		PollMaxTransient: mc.MayInt("POLL_MAX_TRANSIENT", poller.DefaultMaxTransient),
		CacheBackend:     mc.MayEnum("CACHE_BACKEND", CacheMemory, CacheNone, CacheMemory, CachePG),
		CacheMaxEntries:  mc.MayInt("CACHE_MAX_ENTRIES", cache.DefaultMaxEntries),

		RapidAPI: rapidapi.Config{
			Key:         rc.MayFirst("", "KEY", "API_KEY"),
			Host:        rc.MayString("HOST", rapidapi.DefaultHost),
			URL:         rc.MayString("URL", rapidapi.DefaultURL),
			CGeo:        rc.MayString("CGEO", ""),
			ITags:       rc.MayInts("ITAGS", rapidapi.DefaultITags),
			AllowAnyMP4: rc.MayBool("ALLOW_ANY_MP4", true),
			Timeout:     rc.MayDuration("TIMEOUT", 20*time.Second),
		},
		YTDLP: ytdlp.Config{
			Bin:                yc.MayString("BIN", "yt-dlp"),
			ProbeFormat:        yc.MayString("PROBE_FORMAT", ""),
			DownloadFormat:     yc.MayString("FORMAT", ""),
			ProbeTimeout:       yc.MayDuration("PROBE_TIMEOUT", 2*time.Minute),
			DownloadTimeout:    yc.MayDuration("DOWNLOAD_TIMEOUT", 15*time.Minute),
			CookiesFromBrowser: mc.MayString("COOKIES_FROM_BROWSER", ""),
			TempDir:            mc.MayString("DOWNLOAD_DIR", ""),
		},
		TwelveLabs: twelvelabs.Config{
			APIKey:        tc.MayString("API_KEY", ""),
			BaseURL:       tc.MayString("BASE_URL", twelvelabs.DefaultBaseURL),
			OrgID:         tc.MayString("ORG_ID", ""),
			RPS:           tc.MayFloat64("RPS", 2),
			Timeout:       tc.MayDuration("TIMEOUT", 60*time.Second),
			UploadTimeout: tc.MayDuration("UPLOAD_TIMEOUT", DefaultUploadTimeout),
		},
		TwelveCfg: provider.TwelveLabsConfig{
			IndexID:       tc.MayString("INDEX_ID", ""),
			IndexName:     tc.MayString("INDEX_NAME", "vidbrief"),
			EnablePegasus: tc.MayBool("ENABLE_PEGASUS", true),
			EnableMarengo: tc.MayBool("ENABLE_MARENGO", false),
			MaxTokens:     tc.MayInt("MAX_TOKENS", 0),
		},
		Cloudglue: cloudglue.Config{
			APIKey:        cc.MayString("API_KEY", ""),
			BaseURL:       cc.MayString("BASE_URL", cloudglue.DefaultBaseURL),
			RPS:           cc.MayFloat64("RPS", 2),
			Timeout:       cc.MayDuration("TIMEOUT", 60*time.Second),
			UploadTimeout: cc.MayDuration("UPLOAD_TIMEOUT", DefaultUploadTimeout),
		},
		CloudCfg: provider.CloudglueConfig{
			CollectionID:   cc.MayString("COLLECTION_ID", ""),
			CollectionName: cc.MayString("COLLECTION_NAME", "vidbrief"),
		},
		WarmTimeout: mc.MayDuration("WARM_TIMEOUT", 30*time.Second),
	}
}
