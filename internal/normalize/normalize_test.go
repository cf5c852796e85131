package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/gateway"
	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	self  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	other = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	net   = network.Descriptor{ID: "sepolia", ChainID: 11155111, BlockTime: 12 * time.Second}
)

func opts() Options {
	return Options{Self: self, Network: net}
}

func TestNormalize_Direction(t *testing.T) {
	tests := []struct {
		name string
		from string
		want types.Direction
	}{
		{"lowercase self", "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", types.DirectionSent},
		{"checksummed self", self.Hex(), types.DirectionSent},
		{"uppercase self", "0xF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266", types.DirectionSent},
		{"other", other, types.DirectionReceived},
		{"empty from", "", types.DirectionReceived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := Normalize(gateway.RawTransfer{Hash: "0x01", From: tt.from, To: other}, opts())
			if !ok {
				t.Fatal("Normalize() dropped record with hash")
			}
			if tx.Direction != tt.want {
				t.Errorf("Direction = %s, want %s", tx.Direction, tt.want)
			}
		})
	}
}

func TestNormalize_Value(t *testing.T) {
	tests := []struct {
		name string
		raw  gateway.RawTransfer
		want string
	}{
		{
			name: "raw contract with decimals",
			raw: gateway.RawTransfer{Value: "0.999", RawContract: gateway.RawContract{
				Value: "0x0f4240", Decimal: "0x6",
			}},
			want: "1.0",
		},
		{
			name: "eth raw contract",
			raw: gateway.RawTransfer{RawContract: gateway.RawContract{
				Value: "0x6f05b59d3b20000", Decimal: "0x12",
			}},
			want: "0.5",
		},
		{
			name: "textual value only",
			raw:  gateway.RawTransfer{Value: json.Number("0.25")},
			want: "0.25",
		},
		{
			name: "decimal missing falls back to text",
			raw:  gateway.RawTransfer{Value: json.Number("3"), RawContract: gateway.RawContract{Value: "0x3"}},
			want: "3",
		},
		{
			name: "bad hex falls back to text",
			raw:  gateway.RawTransfer{Value: json.Number("7"), RawContract: gateway.RawContract{Value: "0xzz", Decimal: "0x0"}},
			want: "7",
		},
		{
			name: "nothing",
			raw:  gateway.RawTransfer{},
			want: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.raw.Hash = "0x01"
			tx, ok := Normalize(tt.raw, opts())
			if !ok {
				t.Fatal("Normalize() dropped record")
			}
			if tx.Value != tt.want {
				t.Errorf("Value = %q, want %q", tx.Value, tt.want)
			}
		})
	}
}

func TestNormalize_Timestamp(t *testing.T) {
	headTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	head := &gateway.Head{Number: 100, Timestamp: headTime}

	t.Run("metadata", func(t *testing.T) {
		raw := gateway.RawTransfer{Hash: "0x01", BlockNum: "0x5", Metadata: gateway.TransferMeta{BlockTimestamp: "2023-06-01T10:00:00.000Z"}}
		o := opts()
		o.Head = head
		tx, _ := Normalize(raw, o)
		want := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
		if tx.Timestamp == nil || !tx.Timestamp.Equal(want) {
			t.Errorf("Timestamp = %v, want %v", tx.Timestamp, want)
		}
	})

	t.Run("approximated from head", func(t *testing.T) {
		raw := gateway.RawTransfer{Hash: "0x01", BlockNum: "0x5a"} // 90
		o := opts()
		o.Head = head
		tx, _ := Normalize(raw, o)
		want := headTime.Add(-120 * time.Second)
		if tx.Timestamp == nil || !tx.Timestamp.Equal(want) {
			t.Errorf("Timestamp = %v, want %v", tx.Timestamp, want)
		}
		if tx.BlockNumber == nil || *tx.BlockNumber != 90 {
			t.Errorf("BlockNumber = %v, want 90", tx.BlockNumber)
		}
	})

	t.Run("no anchor", func(t *testing.T) {
		tx, _ := Normalize(gateway.RawTransfer{Hash: "0x01", BlockNum: "0x5a"}, opts())
		if tx.Timestamp != nil {
			t.Errorf("Timestamp = %v, want nil", tx.Timestamp)
		}
	})

	t.Run("block ahead of head", func(t *testing.T) {
		o := opts()
		o.Head = head
		tx, _ := Normalize(gateway.RawTransfer{Hash: "0x01", BlockNum: "0xff"}, o)
		if tx.Timestamp != nil {
			t.Errorf("Timestamp = %v, want nil", tx.Timestamp)
		}
	})

	t.Run("no block number", func(t *testing.T) {
		o := opts()
		o.Head = head
		tx, _ := Normalize(gateway.RawTransfer{Hash: "0x01"}, o)
		if tx.Timestamp != nil || tx.BlockNumber != nil {
			t.Errorf("Timestamp = %v, BlockNumber = %v, want nil", tx.Timestamp, tx.BlockNumber)
		}
	})
}

func TestNormalize_StatusAndFields(t *testing.T) {
	raw := gateway.RawTransfer{Hash: "0xabc", From: other, To: self.Hex(), Asset: "USDC", Category: "erc20"}
	tx, ok := Normalize(raw, opts())
	if !ok {
		t.Fatal("Normalize() dropped record")
	}
	if tx.Status != types.TxSuccess {
		t.Errorf("Status = %s, want success", tx.Status)
	}
	if tx.Hash != "0xabc" || tx.From != other || tx.To != self.Hex() || tx.Asset != "USDC" {
		t.Errorf("fields not carried over: %+v", tx)
	}
}

func TestNormalize_MissingHash(t *testing.T) {
	for _, hash := range []string{"", "  "} {
		if _, ok := Normalize(gateway.RawTransfer{Hash: hash, From: other}, opts()); ok {
			t.Errorf("Normalize(hash=%q) kept record, want dropped", hash)
		}
	}
}

func TestNormalizeAll(t *testing.T) {
	raws := []gateway.RawTransfer{
		{Hash: "0x01", BlockNum: "0x1", From: other},
		{Hash: "", BlockNum: "0x9"},
		{Hash: "0x03", BlockNum: "0x3", From: self.Hex()},
		{Hash: "0x02", BlockNum: "0x2", From: other},
		{Hash: "0X03", BlockNum: "0x3", From: other}, // same hash, received side
	}
	got := NormalizeAll(raws, opts())
	wantHashes := []string{"0x03", "0x02", "0x01"}
	if len(got) != len(wantHashes) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(wantHashes), got)
	}
	for i, want := range wantHashes {
		if got[i].Hash != want {
			t.Errorf("got[%d].Hash = %s, want %s", i, got[i].Hash, want)
		}
	}
	if got[0].Direction != types.DirectionSent {
		t.Errorf("first record per hash should win, got direction %s", got[0].Direction)
	}
}

func TestNormalizeAll_Empty(t *testing.T) {
	got := NormalizeAll(nil, opts())
	if got == nil || len(got) != 0 {
		t.Errorf("NormalizeAll(nil) = %v, want empty non-nil slice", got)
	}
}

func TestSort(t *testing.T) {
	u64 := func(n uint64) *uint64 { return &n }
	at := func(sec int64) *time.Time { ts := time.Unix(sec, 0); return &ts }

	txs := []types.Transaction{
		{Hash: "a", Timestamp: at(100)},
		{Hash: "b", Timestamp: at(300)},
		{Hash: "c"},
		{Hash: "d"},
	}
	Sort(txs)
	want := []string{"b", "a", "c", "d"}
	for i, h := range want {
		if txs[i].Hash != h {
			t.Errorf("by timestamp: txs[%d] = %s, want %s", i, txs[i].Hash, h)
		}
	}

	txs = []types.Transaction{
		{Hash: "x", BlockNumber: u64(5), Timestamp: at(500)},
		{Hash: "y", BlockNumber: u64(9), Timestamp: at(100)},
		{Hash: "z", BlockNumber: u64(7)},
	}
	Sort(txs)
	want = []string{"y", "z", "x"}
	for i, h := range want {
		if txs[i].Hash != h {
			t.Errorf("by block: txs[%d] = %s, want %s", i, txs[i].Hash, h)
		}
	}
}

func TestSort_MixedKeys(t *testing.T) {
	u64 := func(n uint64) *uint64 { return &n }
	at := func(sec int64) *time.Time { ts := time.Unix(sec, 0); return &ts }

	tests := []struct {
		name string
		txs  []types.Transaction
		want []string
	}{
		{
			name: "timestamp only, block only, both",
			txs: []types.Transaction{
				{Hash: "b", Timestamp: at(100)},
				{Hash: "a", BlockNumber: u64(10)},
				{Hash: "c", BlockNumber: u64(5), Timestamp: at(200)},
			},
			want: []string{"a", "c", "b"},
		},
		{
			name: "same block broken by timestamp",
			txs: []types.Transaction{
				{Hash: "old", BlockNumber: u64(8), Timestamp: at(10)},
				{Hash: "bare", BlockNumber: u64(8)},
				{Hash: "new", BlockNumber: u64(8), Timestamp: at(20)},
			},
			want: []string{"new", "old", "bare"},
		},
		{
			name: "keyless records last",
			txs: []types.Transaction{
				{Hash: "n1"},
				{Hash: "t", Timestamp: at(1)},
				{Hash: "n2"},
				{Hash: "k", BlockNumber: u64(1)},
			},
			want: []string{"k", "t", "n1", "n2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Sort(tt.txs)
			for i, h := range tt.want {
				if tt.txs[i].Hash != h {
					t.Errorf("txs[%d] = %s, want %s", i, tt.txs[i].Hash, h)
				}
			}
		})
	}
}

func TestSort_OrderIndependentOfInput(t *testing.T) {
	u64 := func(n uint64) *uint64 { return &n }
	at := func(sec int64) *time.Time { ts := time.Unix(sec, 0); return &ts }

	base := []types.Transaction{
		{Hash: "b", Timestamp: at(100)},
		{Hash: "a", BlockNumber: u64(10)},
		{Hash: "c", BlockNumber: u64(5), Timestamp: at(200)},
		{Hash: "d", Timestamp: at(300)},
	}
	want := []string{"a", "c", "d", "b"}

	// Every rotation of the input sorts to the same order.
	for shift := range base {
		txs := append(append([]types.Transaction{}, base[shift:]...), base[:shift]...)
		Sort(txs)
		for i, h := range want {
			if txs[i].Hash != h {
				t.Errorf("rotation %d: txs[%d] = %s, want %s", shift, i, txs[i].Hash, h)
			}
		}
	}
}
