// Command testapp queries the local WMI service from several goroutines to
// exercise the connection pool.
package main

import (
	"flag"
	"log"
	"sync"
	"time"

	"github.com/dronm/gowinsvc"
)

type SimpleLogger struct{}

func (l *SimpleLogger) Infof(format string, args ...any) {
	log.Printf("INFO: "+format, args...)
}

func (l *SimpleLogger) Errorf(format string, args ...any) {
	log.Printf("ERROR: "+format, args...)
}

func (l *SimpleLogger) Debugf(format string, args ...any) {
	log.Printf("DEBUG: "+format, args...)
}

func (l *SimpleLogger) Warnf(format string, args ...any) {
	log.Printf("WARN: "+format, args...)
}

func main() {
	server := flag.String("server", ".", "WMI server")
	workers := flag.Int("workers", 5, "concurrent queries")
	flag.Parse()

	names := flag.Args()
	if len(names) == 0 {
		names = []string{"Spooler", "EventLog", "Winmgmt", "W32Time", "Dnscache"}
	}

	cfg := gowinsvc.Config{
		Server:      *server,
		MaxPoolSize: 2,
		MinPoolSize: 1,
		IdleTimeout: 10 * time.Minute,
	}

	pool, err := gowinsvc.NewPool(&cfg, &SimpleLogger{})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			name := names[id%len(names)]
			start := time.Now()
			svc, err := pool.QueryService(name)
			if err != nil {
				log.Printf("Request %d (%s) failed: %v", id, name, err)
				return
			}
			log.Printf("Request %d succeeded in %v: %s %q state=%s start=%s delayed=%t pid=%d",
				id, time.Since(start), svc.Name, svc.DisplayName, svc.State, svc.StartMode, svc.DelayedAutoStart, svc.ProcessID)
		}(i)
	}

	wg.Wait()
	log.Printf("Pool connections: %v", pool.ConnStatuses())
}
