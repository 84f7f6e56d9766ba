package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/gapdb/database"
	"github.com/fulldump/gapdb/remote"
)

type Config struct {
	Base       string `usage:"base URL of a gapdb server"`
	ApiKey     string `usage:"API key"`
	ApiSecret  string `usage:"API secret"`
	Query      string `usage:"JSON query: an object, a list of objects or an id"`
	Offset     int    `usage:"window offset"`
	Length     int    `usage:"window length, 0 means page length"`
	PageLength int    `usage:"default page length"`
	Unique     string `usage:"comma separated attributes that identify one record"`
	Repeat     int    `usage:"run the request this many times to show local hits"`
	Timeout    int    `usage:"timeout per request in milliseconds"`
	Verbose    bool   `usage:"log remote fetches"`
}

func main() {

	c := &Config{
		Base:       "http://127.0.0.1:8080",
		Query:      "{}",
		PageLength: 10,
		Repeat:     1,
		Timeout:    10000,
	}
	goconfig.Read(c)

	var raw any
	err := json.Unmarshal([]byte(c.Query), &raw)
	if err != nil {
		log.Fatalf("parse query: %s", err.Error())
	}
	q, err := database.ParseQuery(raw)
	if err != nil {
		log.Fatalf("query: %s", err.Error())
	}

	fetcher := remote.NewHTTPFetcher(c.Base + "/v1/records")
	if c.ApiKey != "" {
		fetcher.Header = http.Header{
			"X-Api-Key":    {c.ApiKey},
			"X-Api-Secret": {c.ApiSecret},
		}
	}

	config := &database.Config{
		PageLength: c.PageLength,
		UniqueAttr: splitList(c.Unique),
		Remote:     fetcher,
	}
	if c.Verbose {
		config.Logger = log.New(os.Stderr, "GAPDB: ", log.Lmicroseconds)
	}

	db, err := database.New(config)
	if err != nil {
		log.Fatalf("new database: %s", err.Error())
	}

	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "    ")

	for i := 0; i < c.Repeat; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.Timeout)*time.Millisecond)
		t0 := time.Now()
		result, err := db.Request(ctx, q, c.Offset, c.Length)
		cancel()
		if err != nil {
			log.Fatalf("request: %s", err.Error())
		}
		fmt.Fprintln(os.Stderr, "request", i, "took", time.Since(t0), "held", db.Store().Len())
		e.Encode(output(result))
	}
}

func output(result *database.Result) any {
	if result.Batch != nil {
		list := []any{}
		for _, sub := range result.Batch {
			list = append(list, output(sub))
		}
		return list
	}
	if result.Single {
		return result.One()
	}
	return result.Records
}

func splitList(s string) []string {
	result := []string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
