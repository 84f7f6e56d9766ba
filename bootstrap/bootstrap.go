package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fulldump/box"

	"github.com/fulldump/gapdb/api"
	"github.com/fulldump/gapdb/configuration"
	"github.com/fulldump/gapdb/predicate"
	"github.com/fulldump/gapdb/service"
)

var VERSION = "dev"

// Bootstrap prepares the server described by c. start blocks until stop is
// called or the process receives SIGINT or SIGTERM.
func Bootstrap(c *configuration.Configuration) (start, stop func(), err error) {

	s := service.NewService(&service.Config{
		PageLength: c.PageLength,
		AttrFilters: map[string]predicate.Filter{
			"tags": predicate.Contains,
		},
	})

	if c.Seed != "" {
		n, err := seed(s, c.Seed)
		if err != nil {
			return nil, nil, err
		}
		log.Println("seeded", n, "records from", c.Seed)
	}

	b := api.Build(s, VERSION, c.ApiKey, c.ApiSecret)
	if c.EnableCompression {
		b.WithInterceptors(api.Compression)
	}
	b.WithInterceptors(
		api.AccessLog(log.New(os.Stdout, "ACCESS: ", log.Lshortfile)),
		api.RecoverFromPanic,
		api.PrettyErrorInterceptor,
	)

	server := &http.Server{
		Addr:    c.HttpAddr,
		Handler: box.Box2Http(b),
	}

	ln, err := net.Listen("tcp", c.HttpAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen: %w", err)
	}
	log.Println("listening on", c.HttpAddr)

	exit := make(chan struct{})
	once := &sync.Once{}
	stop = func() {
		once.Do(func() {
			server.Shutdown(context.Background())
			close(exit)
		})
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		select {
		case sig := <-signalChan:
			fmt.Println("Signal received", sig.String())
			stop()
		case <-exit:
		}
		signal.Stop(signalChan)
	}()

	start = func() {
		err := server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			fmt.Println(err.Error())
			stop()
		}
		<-exit
	}

	return start, stop, nil
}

func seed(s *service.Service, filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	n, err := s.Load(f)
	if err != nil {
		return 0, fmt.Errorf("load seed '%s': %w", filename, err)
	}
	return n, nil
}
