package market

// Inventory holds the cosmetic-item identifier lists attached to a listing.
type Inventory struct {
	WeaponSkins []string `json:"WeaponSkins"`
	KnifeSkins  []string `json:"KnifesSkins"`
}

// ItemDetail is a defensive partial view of a marketplace item payload.
// The upstream API ships far more fields than these; anything absent simply
// decodes to its zero value and is rendered as "N/A" downstream.
type ItemDetail struct {
	ItemID         int64      `json:"item_id"`
	Title          string     `json:"title"`
	Price          float64    `json:"price"`
	PriceCurrency  string     `json:"price_currency"`
	Region         string     `json:"riot_valorant_region"`
	SkinCount      int        `json:"riot_valorant_skin_count"`
	WalletVP       int        `json:"riot_valorant_wallet_vp"`
	WalletRP       int        `json:"riot_valorant_wallet_rp"`
	InventoryValue int        `json:"riot_valorant_inventory_value"`
	RankTitle      string     `json:"valorantRankTitle"`
	LastRankTitle  string     `json:"valorantLastRankTitle"`
	Level          int        `json:"riot_valorant_level"`
	LastActivity   int64      `json:"account_last_activity"`
	Inventory      *Inventory `json:"valorantInventory"`
}

// SkinIDs merges the weapon and knife skin lists into one slice.
func (d *ItemDetail) SkinIDs() []string {
	if d.Inventory == nil {
		return nil
	}
	ids := make([]string, 0, len(d.Inventory.WeaponSkins)+len(d.Inventory.KnifeSkins))
	ids = append(ids, d.Inventory.WeaponSkins...)
	ids = append(ids, d.Inventory.KnifeSkins...)
	return ids
}

// WeaponSkinCount reports the weapon-skin sub-list length.
func (d *ItemDetail) WeaponSkinCount() int {
	if d.Inventory == nil {
		return 0
	}
	return len(d.Inventory.WeaponSkins)
}

// KnifeSkinCount reports the knife-skin sub-list length.
func (d *ItemDetail) KnifeSkinCount() int {
	if d.Inventory == nil {
		return 0
	}
	return len(d.Inventory.KnifeSkins)
}

type listResponse struct {
	Items []struct {
		ItemID int64 `json:"item_id"`
	} `json:"items"`
}

type detailResponse struct {
	Item *ItemDetail `json:"item"`
}
