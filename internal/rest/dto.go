package rest

import (
	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type roundParametersResponse struct {
	RoundID       uint64  `json:"round_id"`
	Seed          string  `json:"seed"`
	CoordinatorPK string  `json:"coordinator_pk"`
	Sum           float64 `json:"sum"`
	Update        float64 `json:"update"`
}

func newRoundParametersResponse(p coordinator.RoundParameters) roundParametersResponse {
	return roundParametersResponse{
		RoundID:       p.RoundID,
		Seed:          hexutil.Encode(p.Seed[:]),
		CoordinatorPK: hexutil.Encode(p.CoordinatorPK[:]),
		Sum:           p.Sum,
		Update:        p.Update,
	}
}

type roundRecordResponse struct {
	RoundID     uint64 `json:"round_id"`
	Seed        string `json:"seed"`
	Sums        int    `json:"sums"`
	Updates     int    `json:"updates"`
	Sum2s       int    `json:"sum2s"`
	MaskVotes   int    `json:"mask_votes"`
	MaskDigest  string `json:"mask_digest"`
	ModelLength int    `json:"model_length"`
	CompletedAt int64  `json:"completed_at"`
}

func newRoundRecordResponse(r coordinator.RoundRecord) roundRecordResponse {
	return roundRecordResponse{
		RoundID:     r.RoundID,
		Seed:        hexutil.Encode(r.Seed[:]),
		Sums:        r.Sums,
		Updates:     r.Updates,
		Sum2s:       r.Sum2s,
		MaskVotes:   r.MaskVotes,
		MaskDigest:  hexutil.Encode(r.MaskDigest[:]),
		ModelLength: r.ModelLength,
		CompletedAt: r.CompletedAt,
	}
}

func sumDictResponse(d coordinator.SumDict) map[string]string {
	out := make(map[string]string, len(d))
	for pk, ephm := range d {
		out[pk.String()] = ephm.String()
	}
	return out
}

func seedDictResponse(d coordinator.UpdateSeedDict) map[string]string {
	out := make(map[string]string, len(d))
	for pk, seed := range d {
		out[pk.String()] = hexutil.Encode(seed[:])
	}
	return out
}
