package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	FeedsDir         string
	Topics           []string
	Port             string
	WorkerCount      int
	DispatchInterval int
	StatsInterval    int
	FetchTimeout     int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
