package lookup

import (
	"strings"

	"github.com/erazemk/armory/internal/model"
)

// Consumables is a suggested magazine and round count for an issue.
type Consumables struct {
	Magazines int `json:"magazines"`
	Rounds    int `json:"rounds"`
}

type consumableKey struct {
	itemType string
	dutyType string
}

// consumableTable maps (item type, duty type) to the standard issue.
var consumableTable = map[consumableKey]Consumables{
	{model.ItemTypeGlock, "Duty Sentinel"}: {Magazines: 4, Rounds: 42},
	{model.ItemTypeGlock, "Duty Security"}: {Magazines: 3, Rounds: 30},
	{model.ItemTypeM16, "Duty Sentinel"}:   {Magazines: 3, Rounds: 90},
	{model.ItemTypeM16, "Guard Duty"}:      {Magazines: 2, Rounds: 60},
	{model.ItemTypeM4, "Duty Sentinel"}:    {Magazines: 3, Rounds: 90},
	{model.ItemType45, "Duty Sentinel"}:    {Magazines: 3, Rounds: 21},
}

// SuggestConsumables returns the standard issue for the combination, or
// zeros if there is none. Item type matching ignores case and accepts ".45".
func SuggestConsumables(itemType, dutyType string) Consumables {
	canonical, _ := model.CanonicalItemType(itemType)
	return consumableTable[consumableKey{canonical, strings.TrimSpace(dutyType)}]
}
