package eth

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseABI(t *testing.T) {
	parsed, err := ParseABI()
	if err != nil {
		t.Fatalf("ParseABI() error = %v", err)
	}

	tests := []struct {
		method  string
		inputs  int
		outputs int
		payable bool
	}{
		{"createCampaign", 4, 0, false},
		{"fundCampaign", 1, 0, true},
		{"withdrawFunds", 1, 0, false},
		{"refund", 1, 0, false},
		{"completeCampaign", 1, 0, false},
		{"campaignCount", 0, 1, false},
		{"campaigns", 1, 10, false},
		{"contributions", 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m, ok := parsed.Methods[tt.method]
			if !ok {
				t.Fatalf("method %s missing", tt.method)
			}
			if len(m.Inputs) != tt.inputs {
				t.Errorf("inputs = %d, want %d", len(m.Inputs), tt.inputs)
			}
			if len(m.Outputs) != tt.outputs {
				t.Errorf("outputs = %d, want %d", len(m.Outputs), tt.outputs)
			}
			if m.IsPayable() != tt.payable {
				t.Errorf("payable = %v, want %v", m.IsPayable(), tt.payable)
			}
		})
	}
}

func TestCreateCampaignArgumentOrder(t *testing.T) {
	parsed, err := ParseABI()
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"_name", "_description", "_target", "_deadline"}
	inputs := parsed.Methods["createCampaign"].Inputs
	for i, name := range want {
		if inputs[i].Name != name {
			t.Errorf("input %d = %s, want %s", i, inputs[i].Name, name)
		}
	}
	if inputs[0].Type.String() != "string" {
		t.Errorf("name type = %s, want string", inputs[0].Type.String())
	}
}

func TestDecodeCampaign(t *testing.T) {
	parsed, err := ParseABI()
	if err != nil {
		t.Fatal(err)
	}

	creator := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	eth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	target := new(big.Int).Mul(big.NewInt(10), eth)
	raised := new(big.Int).Mul(big.NewInt(4), eth)

	data, err := parsed.Methods["campaigns"].Outputs.Pack(
		creator, "Well", "Dig a well",
		target, big.NewInt(1700000000), big.NewInt(0),
		raised, big.NewInt(0), big.NewInt(1), true,
	)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	out, err := parsed.Unpack("campaigns", data)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	raw, err := decodeCampaign(out)
	if err != nil {
		t.Fatalf("decodeCampaign() error = %v", err)
	}

	if raw.Creator != creator {
		t.Errorf("Creator = %s, want %s", raw.Creator.Hex(), creator.Hex())
	}
	if raw.Name != "Well" || raw.Description != "Dig a well" {
		t.Errorf("Name/Description = %q/%q", raw.Name, raw.Description)
	}
	if raw.Target.Cmp(target) != 0 {
		t.Errorf("Target = %s, want %s", raw.Target, target)
	}
	if raw.AmountRaised.Cmp(raised) != 0 {
		t.Errorf("AmountRaised = %s, want %s", raw.AmountRaised, raised)
	}
	if raw.Deadline.Int64() != 1700000000 {
		t.Errorf("Deadline = %s", raw.Deadline)
	}
	if raw.AmountRefunded.Int64() != 1 {
		t.Errorf("AmountRefunded = %s, want 1", raw.AmountRefunded)
	}
	if !raw.Completed {
		t.Error("Completed = false, want true")
	}
}

func TestDecodeCampaignWrongLength(t *testing.T) {
	if _, err := decodeCampaign([]any{common.Address{}}); err == nil {
		t.Error("decodeCampaign() expected error for short tuple")
	}
}
