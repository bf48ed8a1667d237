package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"cxdaemon/pkg/common"
)

var maxClients int = 50
var requestsPerClient int = 200

func main() {
	socketPath := common.DaemonSocketPath()

	// verify the daemon is up before measuring
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		log.Fatal("Failed to connect to daemon socket:", err)
	}
	if err := doRequest(conn, bufio.NewReader(conn), `{"type":"Ping"}`); err != nil {
		log.Fatal("Ping failed:", err)
	}
	conn.Close()

	fmt.Printf("daemon verified on %v\n", socketPath)

	requests := []string{
		`{"type":"Ping"}`,
		`{"type":"Status"}`,
		`{"type":"Alerts","data":{"status":"active","severity":null}}`,
		`{"type":"Alerts"}`,
	}

	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := 0; i < maxClients; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := net.Dial("unix", socketPath)
			if err != nil {
				log.Fatal("Failed to connect:", err)
			}
			defer conn.Close()

			reader := bufio.NewReader(conn)
			for j := 0; j < requestsPerClient; j++ {
				if err := doRequest(conn, reader, requests[j%len(requests)]); err != nil {
					log.Fatalf("client %v request %v failed: %v", i, j, err)
				}
			}
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)

	total := maxClients * requestsPerClient
	fmt.Printf(
		"did %v requests over %v clients: used time=%v seconds, throughput=%v request/second\n",
		total, maxClients, usedTime.Seconds(), float64(total)/usedTime.Seconds(),
	)
}

func doRequest(conn net.Conn, reader *bufio.Reader, request string) error {
	if _, err := fmt.Fprintln(conn, request); err != nil {
		return err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return err
	}
	if resp["type"] == "Error" {
		return fmt.Errorf("error response: %v", line)
	}
	return nil
}
