package config

const (
	defaultEndpoint = "http://127.0.0.1:8000/api/chat"
	defaultTimeout  = "5m"

	defaultBufferSize     = 32 * 1024
	defaultMaxRecordBytes = 16 * 1024 * 1024

	defaultPublishProvider = "none"
	defaultPublishTopic    = "transcriber.transcripts"

	defaultFixtureListen = ":8000"
	defaultFixtureDelay  = "25ms"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Endpoint: defaultEndpoint,
			Timeout:  defaultTimeout,
		},
		Stream: StreamConfig{
			BufferSize:     defaultBufferSize,
			MaxRecordBytes: defaultMaxRecordBytes,
		},
		Publish: PublishConfig{
			Provider: defaultPublishProvider,
			Topic:    defaultPublishTopic,
		},
		Fixture: FixtureConfig{
			Listen: defaultFixtureListen,
			Delay:  defaultFixtureDelay,
		},
	}
}

// fillDefaults replaces zero-valued fields with their defaults.
func (c *Config) fillDefaults() {
	d := NewDefaultConfig()

	orDefault(&c.Client.Endpoint, d.Client.Endpoint)
	orDefault(&c.Client.Timeout, d.Client.Timeout)
	orDefault(&c.Stream.BufferSize, d.Stream.BufferSize)
	orDefault(&c.Stream.MaxRecordBytes, d.Stream.MaxRecordBytes)
	orDefault(&c.Publish.Provider, d.Publish.Provider)
	orDefault(&c.Publish.Topic, d.Publish.Topic)
	orDefault(&c.Fixture.Listen, d.Fixture.Listen)
	orDefault(&c.Fixture.Delay, d.Fixture.Delay)
}

func orDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}
