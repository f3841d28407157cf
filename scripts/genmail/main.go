// genmail writes a directory of synthetic order-confirmation emails for
// benchmarking and demos.
//
// Run: go run ./scripts/genmail -out /tmp/inbox -count 1000
//
// The mix is roughly 40% Amazon subject-style confirmations, 30% Nike
// line-style confirmations, 20% unknown-vendor confirmations that only the
// generic patterns can pick up, and 10% noise that should be rejected.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var products = []string{
	"Wireless Mouse", "USB-C Cable", "Mechanical Keyboard", "Monitor Stand",
	"Air Zoom Pegasus", "Dri-FIT Tee", "Running Socks", "Webcam Cover",
	"Desk Lamp", "Phone Grip", "Laptop Sleeve", "HDMI Adapter",
	"Water Bottle", "Notebook", "Cable Organizer", "Power Bank",
}

func main() {
	out := flag.String("out", "synthetic-inbox", "output directory")
	count := flag.Int("count", 100, "number of emails to generate")
	seed := flag.Int64("seed", 42, "rng seed")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *count; i++ {
		var body string
		switch {
		case i%10 < 4:
			body = amazonEmail(rng, i)
		case i%10 < 7:
			body = nikeEmail(rng, i)
		case i%10 < 9:
			body = genericEmail(rng, i)
		default:
			body = noiseEmail(i)
		}

		name := filepath.Join(*out, fmt.Sprintf("msg-%05d.txt", i))
		if err := os.WriteFile(name, []byte(body), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Wrote %d emails to %s\n", *count, *out)
}

func pick(rng *rand.Rand) string {
	return products[rng.Intn(len(products))]
}

func amazonEmail(rng *rand.Rand, i int) string {
	qty := 1 + rng.Intn(3)
	price := 5 + rng.Float64()*95
	total := float64(qty) * price
	return fmt.Sprintf(
		"From: auto-confirm@amazon.com\n"+
			"Subject: Your Amazon.com order of %d x %q\n"+
			"Message-Id: <gen-%d@amazon.com>\n"+
			"\n"+
			"Order #%03d-%07d-%07d\n"+
			"Order Total: $%.2f\n",
		qty, pick(rng), i, 100+rng.Intn(900), rng.Intn(10000000), rng.Intn(10000000), total)
}

func nikeEmail(rng *rand.Rand, i int) string {
	qty := 1 + rng.Intn(2)
	price := 20 + rng.Float64()*140
	return fmt.Sprintf(
		"From: nike@official.nike.com\n"+
			"Subject: Thanks for your Nike order\n"+
			"Message-Id: <gen-%d@nike.com>\n"+
			"\n"+
			"Order Number: C%08d\n"+
			"%s\n"+
			"Qty: %d\n"+
			"Price: $%.2f\n"+
			"Total: $%.2f\n",
		i, rng.Intn(100000000), pick(rng), qty, price, float64(qty)*price)
}

func genericEmail(rng *rand.Rand, i int) string {
	qty := 1 + rng.Intn(4)
	price := 3 + rng.Float64()*40
	return fmt.Sprintf(
		"From: orders@shop%d.example.com\n"+
			"Subject: Order Confirmation\n"+
			"Message-Id: <gen-%d@example.com>\n"+
			"\n"+
			"Order: SHP-%06d\n"+
			"%d x %s - $%.2f\n"+
			"Total: $%.2f\n",
		rng.Intn(50), i, rng.Intn(1000000), qty, pick(rng), price, float64(qty)*price)
}

func noiseEmail(i int) string {
	return fmt.Sprintf(
		"From: newsletter@deals.example.com\n"+
			"Subject: This week's best offers\n"+
			"Message-Id: <gen-%d@deals.example.com>\n"+
			"\n"+
			"Huge savings this week only. Click here to browse.\n",
		i)
}
