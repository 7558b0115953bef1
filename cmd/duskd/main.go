// Command duskd is a thin harness over the block-header tree: it opens a
// store for the chosen network, replays whatever headers are already on
// disk, and can import a batch of new headers from a JSON fixture. It does
// not serve blocks, relay transactions, or speak any wire protocol.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/duskchain/duskd/pkg/config"
	"github.com/duskchain/duskd/pkg/core/blocktree"
	"github.com/duskchain/duskd/pkg/core/clock"
	"github.com/duskchain/duskd/pkg/core/store"
	"github.com/duskchain/duskd/pkg/core/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "info":
		runInfo(os.Args[2:])
	case "import":
		runImport(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: duskd <info|import> [flags]")
}

func commonFlags(fs *flag.FlagSet) (network *string, dataDir *string) {
	network = fs.String("network", "regtest", "network to use: mainnet, testnet, regtest")
	dataDir = fs.String("datadir", "", "badger data directory (empty = in-memory)")
	return
}

func openTree(networkName, dataDir string) (*blocktree.Tree, store.Store, error) {
	netConfig, ok := config.ByName(networkName)
	if !ok {
		return nil, nil, fmt.Errorf("unknown network %q", networkName)
	}

	st, err := store.NewBadgerStore(dataDir, netConfig.Genesis)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	tree, err := blocktree.New(st, netConfig.Params, netConfig.Checkpoints)
	if err != nil {
		return nil, nil, fmt.Errorf("building tree: %w", err)
	}
	return tree, st, nil
}

func runInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	network, dataDir := commonFlags(fs)
	fs.Parse(args)

	tree, st, err := openTree(*network, *dataDir)
	if err != nil {
		log.Fatal(err)
	}
	defer closeIfCloser(st)

	hash, header := tree.Tip()
	fmt.Printf("network: %s\n", *network)
	fmt.Printf("height:  %d\n", tree.Height())
	fmt.Printf("tip:     %s\n", hash)
	fmt.Printf("time:    %d\n", header.Time)
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	network, dataDir := commonFlags(fs)
	fixture := fs.String("fixture", "", "path to a JSON array of headers to import")
	trace := fs.Bool("trace", false, "log swallowed duplicate/missing errors during import")
	fs.Parse(args)

	if *fixture == "" {
		log.Fatal("import requires -fixture")
	}

	tree, st, err := openTree(*network, *dataDir)
	if err != nil {
		log.Fatal(err)
	}
	defer closeIfCloser(st)
	tree.Trace = *trace

	headers, err := loadFixture(*fixture)
	if err != nil {
		log.Fatalf("loading fixture: %v", err)
	}

	result, err := tree.ImportBlocks(headers, clock.System{})
	if err != nil {
		log.Fatalf("import aborted: %v", err)
	}

	switch result.Kind {
	case blocktree.TipChanged:
		fmt.Printf("tip changed: height=%d hash=%s stale=%d\n", result.Height, result.Hash, len(result.Stale))
	case blocktree.TipUnchanged:
		fmt.Println("tip unchanged")
	}
}

// fixtureHeader mirrors types.BlockHeader with hex-encoded hash fields, since
// [32]byte does not round-trip through encoding/json on its own.
type fixtureHeader struct {
	Version       uint32 `json:"version"`
	PrevBlockHash string `json:"prev_block_hash"`
	MerkleRoot    string `json:"merkle_root"`
	Time          uint32 `json:"time"`
	Bits          uint32 `json:"bits"`
	Nonce         uint32 `json:"nonce"`
}

func loadFixture(path string) ([]types.BlockHeader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fixtures []fixtureHeader
	if err := json.Unmarshal(raw, &fixtures); err != nil {
		return nil, err
	}

	headers := make([]types.BlockHeader, len(fixtures))
	for i, f := range fixtures {
		prev, err := types.HashFromHex(f.PrevBlockHash)
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
		merkle, err := types.HashFromHex(f.MerkleRoot)
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
		headers[i] = types.BlockHeader{
			Version:       f.Version,
			PrevBlockHash: prev,
			MerkleRoot:    merkle,
			Time:          f.Time,
			Bits:          f.Bits,
			Nonce:         f.Nonce,
		}
	}
	return headers, nil
}

type closer interface {
	Close() error
}

func closeIfCloser(v interface{}) {
	if c, ok := v.(closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}
}
