package types

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DistributorRecord captures how a distributor address was installed.
// Records are immutable once persisted: a rescan may add new records but
// never rewrites an existing one.
type DistributorRecord struct {
	Type                DistributorType
	Block               uint64
	Date                string
	TxHash              string
	Method              string
	Owner               string
	EventData           string
	IsRewardDistributor bool
	DistributorAddress  string

	// Fields added to a persisted record out-of-band. They round-trip
	// through read/merge/write untouched.
	extra *orderedmap.OrderedMap[string, json.RawMessage]
}

func (r *DistributorRecord) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, any]()
	om.Set("type", r.Type)
	om.Set("block", r.Block)
	om.Set("date", r.Date)
	om.Set("tx_hash", r.TxHash)
	om.Set("method", r.Method)
	om.Set("owner", r.Owner)
	om.Set("event_data", r.EventData)
	om.Set("is_reward_distributor", r.IsRewardDistributor)
	om.Set("distributor_address", r.DistributorAddress)
	if r.extra != nil {
		for pair := r.extra.Oldest(); pair != nil; pair = pair.Next() {
			om.Set(pair.Key, pair.Value)
		}
	}
	return json.Marshal(om)
}

func (r *DistributorRecord) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, om); err != nil {
		return err
	}
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		var err error
		switch pair.Key {
		case "type":
			err = json.Unmarshal(pair.Value, &r.Type)
		case "block":
			err = json.Unmarshal(pair.Value, &r.Block)
		case "date":
			err = json.Unmarshal(pair.Value, &r.Date)
		case "tx_hash":
			err = json.Unmarshal(pair.Value, &r.TxHash)
		case "method":
			err = json.Unmarshal(pair.Value, &r.Method)
		case "owner":
			err = json.Unmarshal(pair.Value, &r.Owner)
		case "event_data":
			err = json.Unmarshal(pair.Value, &r.EventData)
		case "is_reward_distributor":
			err = json.Unmarshal(pair.Value, &r.IsRewardDistributor)
		case "distributor_address":
			err = json.Unmarshal(pair.Value, &r.DistributorAddress)
		default:
			if r.extra == nil {
				r.extra = orderedmap.New[string, json.RawMessage]()
			}
			r.extra.Set(pair.Key, pair.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ExtraFieldCount reports how many unrecognized fields the record carries.
func (r *DistributorRecord) ExtraFieldCount() int {
	if r.extra == nil {
		return 0
	}
	return r.extra.Len()
}
