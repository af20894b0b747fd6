//go:build ignore

// Run: go run ./build-tools/loadgen.go -url nats://localhost:4222 -subject trades.deltas -pairs 1,2,3 -cycles 100 -interval 1s

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
)

type trade struct {
	PairID      int64     `json:"pair_id"`
	Timestamp   time.Time `json:"timestamp"`
	Price       float64   `json:"price"`
	Amount      float64   `json:"amount"`
	BlockNumber uint64    `json:"block_number"`
}

type tradeDelta struct {
	Cycle   int64     `json:"cycle"`
	StartTS time.Time `json:"start_ts"`
	Trades  []trade   `json:"trades"`
}

func main() {
	var (
		url      = flag.String("url", "nats://localhost:4222", "nats server url")
		subject  = flag.String("subject", "trades.deltas", "delta subject")
		pairs    = flag.String("pairs", "1,2,3", "comma-separated pair ids")
		cycles   = flag.Int("cycles", 100, "delta cycles to publish")
		interval = flag.Duration("interval", time.Second, "delay between cycles")
		tps      = flag.Int("tps", 50, "trades per cycle")
	)
	flag.Parse()

	pairIDs := parsePairs(*pairs)
	if len(pairIDs) == 0 {
		fmt.Println("no pairs provided")
		os.Exit(1)
	}

	nc, err := nats.Connect(*url)
	if err != nil {
		fmt.Printf("connect: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	prices := make(map[int64]float64, len(pairIDs))
	for _, p := range pairIDs {
		prices[p] = 100 + rand.Float64()*900
	}

	block := uint64(1_000_000)
	for cycle := 1; cycle <= *cycles; cycle++ {
		select {
		case <-sigCh:
			fmt.Println("interrupted")
			return
		default:
		}

		start := time.Now().UTC().Truncate(time.Minute)
		delta := tradeDelta{Cycle: int64(cycle), StartTS: start}

		for i := 0; i < *tps; i++ {
			p := pairIDs[rand.Intn(len(pairIDs))]
			prices[p] *= 1 + (rand.Float64()-0.5)*0.01
			amount := rand.Float64() * 10
			if rand.Intn(2) == 0 {
				amount = -amount
			}
			block++
			delta.Trades = append(delta.Trades, trade{
				PairID:      p,
				Timestamp:   start.Add(time.Duration(rand.Int63n(int64(time.Minute)))),
				Price:       prices[p],
				Amount:      amount,
				BlockNumber: block,
			})
		}

		payload, _ := json.Marshal(delta)
		if err := nc.Publish(*subject, payload); err != nil {
			fmt.Printf("publish: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("cycle=%d trades=%d start_ts=%s\n", cycle, len(delta.Trades), start.Format(time.RFC3339))
		time.Sleep(*interval)
	}
}

func parsePairs(s string) []int64 {
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
