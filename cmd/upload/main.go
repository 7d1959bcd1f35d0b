// Command upload bulk-uploads a file to a programming assignment, either for
// every student on the roster or for a single student by email.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/elowenm/gradescope-regrader/config"
	"github.com/elowenm/gradescope-regrader/gradescope"
)

func main() {
	var (
		cookieFile = flag.String("cookies", "cookies.json", "filename for the cookie cache")
		uploadAll  = flag.Bool("all", false, "upload a file for every student on the roster")
		email      = flag.String("email", "", "email of a single student to upload a file for")
		filePath   = flag.String("file", "", "path of the file to upload (empty uploads a blank upload.txt)")
		threads    = flag.Int("threads", 8, "maximum concurrent upload requests")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	courseID, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		log.Fatalf("invalid course id %q", flag.Arg(0))
	}
	assignmentID, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		log.Fatalf("invalid assignment id %q", flag.Arg(1))
	}
	if !*uploadAll && *email == "" {
		log.Fatal("one of -all or -email is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	creds, err := config.LoadCredentials()
	if err != nil {
		logger.Warn("credentials not found in environment, relying on the cookie cache", zap.Error(err))
	}

	client, err := gradescope.New(gradescope.Config{
		Email:      creds.Email,
		Password:   creds.Password,
		CookieFile: *cookieFile,
	}, logger)
	if err != nil {
		log.Fatal(err)
	}

	roster, csrf, err := client.FetchSubmissionPage(courseID, assignmentID)
	if err != nil {
		log.Fatal(err)
	}

	filename := "upload.txt"
	var content []byte
	if *filePath != "" {
		content, err = os.ReadFile(*filePath)
		if err != nil {
			log.Fatal(err)
		}
		filename = filepath.Base(*filePath)
	}

	if !*uploadAll {
		entry, ok := findByEmail(roster, *email)
		if !ok {
			log.Fatalf("email %q not found in the roster", *email)
		}
		if err := client.Upload(courseID, assignmentID, entry.ID, filename, content, csrf); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Uploaded %s for %s\n", filename, entry.Email)
		return
	}

	jobs := make(chan gradescope.RosterEntry)
	var (
		wg       sync.WaitGroup
		failures atomic.Int64
	)
	workers := *threads
	if workers > len(roster) {
		workers = len(roster)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				if err := client.Upload(courseID, assignmentID, entry.ID, filename, content, csrf); err != nil {
					failures.Add(1)
					logger.Error("upload failed", zap.Int64("user_id", entry.ID), zap.Error(err))
					continue
				}
				logger.Info("uploaded", zap.Int64("user_id", entry.ID), zap.String("email", entry.Email))
			}
		}()
	}
	for _, entry := range roster {
		jobs <- entry
	}
	close(jobs)
	wg.Wait()

	if n := failures.Load(); n > 0 {
		log.Fatalf("%d/%d uploads failed", n, len(roster))
	}
	fmt.Printf("Uploaded %s for %d students\n", filename, len(roster))
}

func findByEmail(roster []gradescope.RosterEntry, email string) (gradescope.RosterEntry, bool) {
	for _, entry := range roster {
		if entry.Email == email {
			return entry, true
		}
	}
	return gradescope.RosterEntry{}, false
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] course_id assignment_id\n", os.Args[0])
	flag.PrintDefaults()
}
