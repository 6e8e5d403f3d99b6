package maestro

const (
	DefaultCacheSize   = 256
	DefaultParallelism = 4
	DefaultDomain      = "music"
)
