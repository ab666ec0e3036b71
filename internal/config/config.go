package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress    string
	AuthPassword   string
	CerebrasKey    string
	AssemblyAIKey  string
	SupabaseURL    string
	SupabaseKey    string
	DefaultPreset  string
	CompletionWait time.Duration
	DedupTTL       time.Duration
	DeltaPacing    time.Duration
	MaxHistory     int
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	cerebrasKey := os.Getenv("CEREBRAS_API_KEY")
	if cerebrasKey == "" {
		log.Println("Warning: CEREBRAS_API_KEY not set - suggestions will not work")
	}

	assemblyAIKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if assemblyAIKey == "" {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set - audio transcription disabled")
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("Warning: SUPABASE_URL / SUPABASE_SERVICE_ROLE_KEY not set - suggestions kept in memory only")
	}

	preset := os.Getenv("QUALITY_PRESET")
	if preset == "" {
		preset = "balanced"
	}

	log.Printf("config: HTTP_ADDRESS=%s preset=%s", addr, preset)
	return Config{
		HTTPAddress:    addr,
		AuthPassword:   os.Getenv("AUTH_PASSWORD"),
		CerebrasKey:    cerebrasKey,
		AssemblyAIKey:  assemblyAIKey,
		SupabaseURL:    supabaseURL,
		SupabaseKey:    supabaseKey,
		DefaultPreset:  preset,
		CompletionWait: durationMS("COMPLETION_TIMEOUT_MS", 8000),
		DedupTTL:       durationMS("DEDUP_TTL_MS", 30000),
		DeltaPacing:    durationMS("DELTA_PACING_MS", 50),
		MaxHistory:     intEnv("MAX_HISTORY", 6),
	}
}

// durationMS reads a millisecond count from the environment. Unset or
// unparsable values fall back to def.
func durationMS(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Millisecond
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %dms", key, v, def)
		return time.Duration(def) * time.Millisecond
	}
	return time.Duration(n) * time.Millisecond
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}
