package configuration

type Configuration struct {
	HttpAddr          string `usage:"HTTP address"`
	Seed              string `usage:"JSON lines file with the records to serve"`
	PageLength        int    `usage:"page length used when requests do not set one"`
	ApiKey            string `usage:"API key, leave empty to disable authentication"`
	ApiSecret         string `usage:"API secret"`
	EnableCompression bool   `usage:"gzip responses"`
	Version           bool   `usage:"show version and exit"`
	ShowBanner        bool   `usage:"show big banner"`
	ShowConfig        bool   `usage:"print config"`
}

func Default() *Configuration {
	return &Configuration{
		HttpAddr:          "127.0.0.1:8080",
		Seed:              "",
		PageLength:        10,
		EnableCompression: true,
		ShowBanner:        true,
	}
}
