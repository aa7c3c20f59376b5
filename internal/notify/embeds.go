package notify

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"

	"market-listing-alerts/internal/market"
)

const embedColor = 0x2F3136

const attachmentName = "skin_grid.png"

// lastActivityString renders the epoch-seconds activity timestamp.
func lastActivityString(epoch int64) string {
	if epoch == 0 {
		return "N/A"
	}
	return time.Unix(epoch, 0).Format("02/01/2006 15:04:05")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

func statFields(detail *market.ItemDetail, priceLabel, priceDisplay string) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		field("💰 Inventory (VP)", fmt.Sprintf("%d", detail.InventoryValue), true),
		field("🔫 Skins", fmt.Sprintf("%d", detail.SkinCount), true),
		field("💸 Wallet VP", fmt.Sprintf("%d", detail.WalletVP), true),
		field("💎 Wallet RP", fmt.Sprintf("%d", detail.WalletRP), true),
		field("🌍 Region", orNA(detail.Region), true),
		field(priceLabel, priceDisplay, true),
		field("🏆 Current Rank", orNA(detail.RankTitle), true),
		field("🏅 Last Rank", orNA(detail.LastRankTitle), true),
		field("📊 Level", fmt.Sprintf("%d", detail.Level), true),
		field("📅 Last Activity", lastActivityString(detail.LastActivity), false),
	}
}

// ClientEmbed builds the restricted client-facing notification: no real ID,
// margin-adjusted price, purchase instructions.
func ClientEmbed(detail *market.ItemDetail, code string, rate *decimal.Decimal, margin decimal.Decimal, international bool) *discordgo.MessageEmbed {
	title := "✨ New BR Account Available ✨"
	description := "**Valorant Account**"
	if international {
		title = fmt.Sprintf("✨ New %s Account Available ✨", orNA(detail.Region))
		description = "**International Valorant Account**"
	}

	priceDisplay := ClientPrice(detail.Price, detail.PriceCurrency, rate, margin)

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       embedColor,
		Fields:      statFields(detail, "💲 Price", priceDisplay),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Verified listing"},
	}
	embed.Fields = append(embed.Fields,
		field("🔑 Account ID", code, false),
		field("📢 How to Buy", "Contact a vendor and quote the account ID to purchase.", false),
	)
	return embed
}

// VendorEmbed builds the full vendor-facing view, including the real item ID,
// the marketplace link, and the margin breakdown when a margin is active.
func VendorEmbed(detail *market.ItemDetail, realID int64, code string, rate *decimal.Decimal, margin decimal.Decimal) *discordgo.MessageEmbed {
	priceDisplay := VendorPrice(detail.Price, detail.PriceCurrency, rate)

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("✨ Account Details %s ✨", orNA(detail.Region)),
		Description: fmt.Sprintf("**%s**", orNA(detail.Title)),
		Color:       embedColor,
		Fields:      statFields(detail, "💲 Original Price", priceDisplay),
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Real ID: %d", realID)},
	}
	embed.Fields = append(embed.Fields,
		field("🗡️ Weapon/Knife Skins", fmt.Sprintf("%d / %d", detail.WeaponSkinCount(), detail.KnifeSkinCount()), false),
		field("🔗 Purchase Link", fmt.Sprintf("https://lzt.market/%d", realID), false),
		field("🔑 Client ID", code, false),
	)

	if margin.IsPositive() {
		clientDisplay := ClientPrice(detail.Price, detail.PriceCurrency, rate, margin)
		embed.Fields = append(embed.Fields, field(
			"📈 Margin Info",
			fmt.Sprintf("Current margin: **%s%%**\nPrice shown to clients: **%s**", margin.String(), clientDisplay),
			false,
		))
	}
	return embed
}

// AddPreviewPlaceholder notes a missing composite image on the embed.
func AddPreviewPlaceholder(embed *discordgo.MessageEmbed, reason string) {
	embed.Fields = append(embed.Fields, field("🖼️ Skins Preview", reason, false))
}
