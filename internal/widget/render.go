package widget

import (
	"github.com/charmbracelet/lipgloss"

	"aurorachat/internal/models"
)

const (
	DefaultWidth = 60
	botName      = "Aurora Bot"
	userName     = "You"
	typingDots   = "• • •"
	metaLayout   = "3:04 PM"
)

type palette struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	UserBubble lipgloss.Color
	UserText   lipgloss.Color
	BotBubble  lipgloss.Color
	Meta       lipgloss.Color
}

var palettes = map[Theme]palette{
	ThemeDark: {
		Background: "#0f1020",
		Foreground: "#e8e8f0",
		UserBubble: "#6c5ce7",
		UserText:   "#ffffff",
		BotBubble:  "#262a4d",
		Meta:       "#8a8fb5",
	},
	ThemeLight: {
		Background: "#f5f6fb",
		Foreground: "#1d1f33",
		UserBubble: "#6c5ce7",
		UserText:   "#ffffff",
		BotBubble:  "#eceef8",
		Meta:       "#6b6f8f",
	},
}

// Renderer turns State snapshots into display rows.
type Renderer struct {
	Width int
}

// Rows renders s at DefaultWidth.
func Rows(s State) []string {
	return Renderer{Width: DefaultWidth}.Rows(s)
}

// Rows returns one row per message in log order followed by one typing row
// per pending request.
func (r Renderer) Rows(s State) []string {
	width := r.Width
	if width <= 0 {
		width = DefaultWidth
	}
	pal := paletteFor(s.Theme)
	bubbleWidth := width * 3 / 4

	rows := make([]string, 0, len(s.Messages)+s.Pending)
	for _, msg := range s.Messages {
		rows = append(rows, renderMessage(pal, msg, width, bubbleWidth))
	}
	for i := 0; i < s.Pending; i++ {
		rows = append(rows, renderTyping(pal, width))
	}
	return rows
}

// Screen returns the base style for the whole screen under theme t.
func Screen(t Theme) lipgloss.Style {
	pal := paletteFor(t)
	return lipgloss.NewStyle().Background(pal.Background).Foreground(pal.Foreground)
}

// MetaLabel is the caption under a bubble, e.g. "You · 3:04 PM".
func MetaLabel(msg models.Message) string {
	name := botName
	if msg.Sender == models.SenderUser {
		name = userName
	}
	return name + " · " + msg.Timestamp.Format(metaLayout)
}

func renderMessage(pal palette, msg models.Message, width, bubbleWidth int) string {
	bubble := lipgloss.NewStyle().Padding(0, 1).MaxWidth(bubbleWidth)
	align := lipgloss.Left
	if msg.Sender == models.SenderUser {
		bubble = bubble.Background(pal.UserBubble).Foreground(pal.UserText)
		align = lipgloss.Right
	} else {
		bubble = bubble.Background(pal.BotBubble).Foreground(pal.Foreground)
	}
	text := lipgloss.NewStyle().Width(bubbleWidth - 2).Render(msg.Text)
	if lipgloss.Width(msg.Text) < bubbleWidth-2 {
		text = msg.Text
	}
	meta := lipgloss.NewStyle().Foreground(pal.Meta).Render(MetaLabel(msg))
	block := lipgloss.JoinVertical(align, bubble.Render(text), meta)
	return lipgloss.PlaceHorizontal(width, align, block)
}

func renderTyping(pal palette, width int) string {
	bubble := lipgloss.NewStyle().Padding(0, 1).Background(pal.BotBubble).Foreground(pal.Meta)
	return lipgloss.PlaceHorizontal(width, lipgloss.Left, bubble.Render(typingDots))
}

func paletteFor(t Theme) palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[ThemeDark]
}
