package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:8080/health -timeout=2m
func main() {
	urlPtr := flag.String("url", "http://localhost:8080/health", "the health endpoint to poll")
	timeoutPtr := flag.Duration("timeout", 5*time.Minute, "give up after this duration")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	deadline := time.Now().Add(*timeoutPtr)
	totalWaitTime := 0
	for {
		res, err := client.Get(*urlPtr)
		if err == nil {
			res.Body.Close()
			fmt.Println(res.Status)
			if res.StatusCode == http.StatusOK {
				return
			}
		} else {
			fmt.Println(err)
		}
		if time.Now().After(deadline) {
			fmt.Printf("%s not available after %d seconds\n", *urlPtr, totalWaitTime)
			os.Exit(1)
		}
		totalWaitTime += 5
		fmt.Printf("Waiting %d seconds\n", totalWaitTime)
		time.Sleep(5 * time.Second)
	}
}
