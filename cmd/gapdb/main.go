package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/gapdb/bootstrap"
	"github.com/fulldump/gapdb/configuration"
)

var banner = `
                        _ _     
  __ _  __ _ _ __   __| | |__  
 / _' |/ _' | '_ \ / _' | '_ \ 
| (_| | (_| | |_) | (_| | |_) |
 \__, |\__,_| .__/ \__,_|_.__/ 
 |___/      |_|   version ` + bootstrap.VERSION + `
`

func main() {

	c := configuration.Default()
	goconfig.Read(c)

	if c.Version {
		fmt.Println("Version:", bootstrap.VERSION)
		return
	}

	if c.ShowBanner {
		fmt.Println(banner)
	}

	if c.ShowConfig {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "    ")
		e.Encode(c)
	}

	start, _, err := bootstrap.Bootstrap(c)
	if err != nil {
		log.Println("ERROR:", err.Error())
		os.Exit(-1)
	}

	start()
}
