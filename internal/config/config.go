package config

import "time"

// Config holds all environment-level settings. Nothing here is mutable at
// runtime; the process must be restarted to change any of it.
type Config struct {
	AppPort string `help:"HTTP listen port." env:"APP_PORT" default:"3000"`

	SegmentsDir string `help:"Directory holding playlist.m3u8 and segment_NNN.ts files." env:"SEGMENTS_DIR" default:"./segments"`
	PublicDir   string `help:"Directory with the static player frontend." env:"PUBLIC_DIR" default:"./public"`

	PricePerSegment string `help:"Price per video segment (e.g. $0.001 in USDC)." env:"PRICE_PER_SEGMENT" default:"$0.001"`
	ReceiverAddress string `help:"Address payments are settled to." env:"RECEIVER_ADDRESS" default:"0x75a8792ef34334871be60e2f2713762ce407e55f"`
	PaymentNetwork  string `help:"Payment network identifier." env:"PAYMENT_NETWORK" default:"base-sepolia"`

	FacilitatorURL     string        `help:"Base URL of the x402 facilitator." env:"FACILITATOR_URL" default:"https://x402.org/facilitator"`
	FacilitatorTimeout time.Duration `help:"Bound on a single verify+settle round trip." env:"FACILITATOR_TIMEOUT" default:"10s"`

	DemoMode bool `help:"Bypass payment enforcement entirely." env:"DEMO_MODE"`

	SessionBackend string        `help:"Paid-set session store backend." env:"SESSION_BACKEND" enum:"memory,redis" default:"memory"`
	SessionTTL     time.Duration `help:"Session lifetime for the redis backend." env:"SESSION_TTL" default:"24h"`
	RedisAddr      string        `help:"Redis address (redis backend only)." env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string        `help:"Redis password (redis backend only)." env:"REDIS_PASSWORD"`
}
