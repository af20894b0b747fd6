// Package chain carries metadata for the EVM chains whose trade feeds we
// aggregate. The metadata table is embedded in the binary and exposed
// through a lazily built registry: the slug reverse map is constructed
// once, on first access, behind a sync.Once guard rather than ambient
// mutable globals.
package chain

import (
	"errors"
	"fmt"
	"sync"
)

var ErrChainDataMissing = errors.New("no metadata for chain")

// ChainID is an EVM chain id. The integer value defines the identity of
// the blockchain, see https://chainid.network/.
type ChainID uint32

const (
	Ethereum ChainID = 1
	BSC      ChainID = 56
	Polygon  ChainID = 137
)

type Metadata struct {
	Name     string
	Slug     string
	Homepage string
	Explorer string
	SVGIcon  string
}

var chainData = map[ChainID]Metadata{
	Ethereum: {
		Name:     "Ethereum",
		Slug:     "ethereum",
		Homepage: "https://ethereum.org",
		Explorer: "https://etherscan.io",
		SVGIcon:  "https://upload.wikimedia.org/wikipedia/commons/0/05/Ethereum_logo_2014.svg",
	},
	BSC: {
		Name:     "Binance Smart Chain",
		Slug:     "binance",
		Homepage: "https://www.bnbchain.org",
		Explorer: "https://bscscan.com",
		SVGIcon:  "https://hv4gxzchk24cqfezebn3ujjz6oy2kbtztv5vghn6kpbkjc3vg4rq.arweave.net/fgp9wHyH92hION8E6CuPtUNbmiTlqsl23QbQlwA8cZQ",
	},
	Polygon: {
		Name:     "Polygon",
		Slug:     "polygon",
		Homepage: "https://polygon.technology",
		Explorer: "https://polygonscan.com",
		SVGIcon:  "https://hv4gxzchk24cqfezebn3ujjz6oy2kbtztv5vghn6kpbkjc3vg4rq.arweave.net/nLW0IfMZnhhaqdN1AbzC4d1NLZSpBlIMEHhXq-KcOws",
	},
}

var (
	slugOnce sync.Once
	slugMap  map[string]ChainID
)

func slugRegistry() map[string]ChainID {
	slugOnce.Do(func() {
		slugMap = make(map[string]ChainID, len(chainData))
		for id, md := range chainData {
			slugMap[md.Slug] = id
		}
	})
	return slugMap
}

// Data returns the metadata entry for the chain.
func (c ChainID) Data() (Metadata, error) {
	md, ok := chainData[c]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %d", ErrChainDataMissing, c)
	}
	return md, nil
}

func (c ChainID) Name() string {
	md, _ := c.Data()
	return md.Name
}

func (c ChainID) Slug() string {
	md, _ := c.Data()
	return md.Slug
}

// AddressLink builds an EIP-3091 explorer link for an address.
func (c ChainID) AddressLink(address string) (string, error) {
	md, err := c.Data()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/address/%s", md.Explorer, address), nil
}

// TxLink builds an EIP-3091 explorer link for a transaction.
func (c ChainID) TxLink(tx string) (string, error) {
	md, err := c.Data()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/tx/%s", md.Explorer, tx), nil
}

// BySlug resolves a URL slug back to a chain id. Most useful for
// routing; returns false for unknown slugs.
func BySlug(slug string) (ChainID, bool) {
	id, ok := slugRegistry()[slug]
	return id, ok
}
