package chain

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"
)

func TestSelectorKnownValues(t *testing.T) {
	// Canonical selectors verifiable against any Ethereum tooling.
	tests := []struct {
		signature string
		want      string
	}{
		{"transfer(address,uint256)", "a9059cbb"},
		{"balanceOf(address)", "70a08231"},
		{"Error(string)", "08c379a0"},
	}

	for _, tt := range tests {
		sel := Selector(tt.signature)
		if got := hex.EncodeToString(sel[:]); got != tt.want {
			t.Errorf("Selector(%q) = %s, want %s", tt.signature, got, tt.want)
		}
	}
}

func TestEncodeCall(t *testing.T) {
	addr, err := AddressArg("0x2222222222222222222222222222222222222222")
	if err != nil {
		t.Fatal(err)
	}

	data := EncodeCall("isAttester(address)", addr)
	if len(data) != 4+32 {
		t.Fatalf("len(data) = %d, want 36", len(data))
	}
	// Address is left-padded into the word.
	word := data[4:]
	if !bytes.Equal(word[:12], make([]byte, 12)) {
		t.Error("address word should be left-padded with zeros")
	}
	if !bytes.Equal(word[12:], addr) {
		t.Error("address bytes should fill the low 20 bytes")
	}
}

func TestAddressArgRejectsBadInput(t *testing.T) {
	for _, bad := range []string{"", "0x12", "not-hex", "0x" + "11" + "2222222222222222222222222222222222222222"} {
		if _, err := AddressArg(bad); err == nil {
			t.Errorf("AddressArg(%q) should fail", bad)
		}
	}
}

func TestDecodeBool(t *testing.T) {
	trueWord := make([]byte, 32)
	trueWord[31] = 1
	got, err := DecodeBool(trueWord)
	if err != nil || !got {
		t.Errorf("DecodeBool(true word) = %v, %v", got, err)
	}

	got, err = DecodeBool(make([]byte, 32))
	if err != nil || got {
		t.Errorf("DecodeBool(zero word) = %v, %v", got, err)
	}

	if _, err := DecodeBool([]byte{0x01}); err == nil {
		t.Error("short return should fail")
	}
}

func TestDecodeUint(t *testing.T) {
	word := make([]byte, 32)
	big.NewInt(1_000_000).FillBytes(word)

	got, err := DecodeUint(word)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("DecodeUint = %s, want 1000000", got)
	}
}

func TestDecodeString(t *testing.T) {
	// ABI encoding of "hello": offset 32, length 5, data.
	ret := make([]byte, 96)
	big.NewInt(32).FillBytes(ret[:32])
	big.NewInt(5).FillBytes(ret[32:64])
	copy(ret[64:], "hello")

	got, err := DecodeString(ret)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("DecodeString = %q, want %q", got, "hello")
	}

	if _, err := DecodeString([]byte{0x01, 0x02}); err == nil {
		t.Error("short payload should fail")
	}
}

func TestDecodeRevert(t *testing.T) {
	// Error("insufficient balance")
	msg := "insufficient balance"
	payload := make([]byte, 4+96)
	sel, _ := hex.DecodeString(errorSelector)
	copy(payload, sel)
	big.NewInt(32).FillBytes(payload[4:36])
	big.NewInt(int64(len(msg))).FillBytes(payload[36:68])
	copy(payload[68:], msg)

	if got := DecodeRevert(payload); got != "execution reverted: insufficient balance" {
		t.Errorf("DecodeRevert(Error) = %q", got)
	}

	// Panic(0x11)
	panicPayload := make([]byte, 36)
	panicSel, _ := hex.DecodeString(panicSelector)
	copy(panicPayload, panicSel)
	panicPayload[35] = 0x11
	if got := DecodeRevert(panicPayload); got != "panic 0x11: arithmetic overflow or underflow" {
		t.Errorf("DecodeRevert(Panic) = %q", got)
	}

	// Custom contract error.
	epochSel := Selector("EpochCapExceeded()")
	if got := DecodeRevert(epochSel[:]); got != "contract error: EpochCapExceeded()" {
		t.Errorf("DecodeRevert(custom) = %q", got)
	}

	// Unknown and empty payloads degrade gracefully.
	if got := DecodeRevert([]byte{0xde, 0xad, 0xbe, 0xef}); got != "unknown error selector 0xdeadbeef" {
		t.Errorf("DecodeRevert(unknown) = %q", got)
	}
	if got := DecodeRevert(nil); got != "execution reverted (no reason)" {
		t.Errorf("DecodeRevert(nil) = %q", got)
	}
}
