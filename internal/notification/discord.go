package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/robintw/AOT2PM/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

func SendDiscordErrorNotification(errorMessage string) error {
	return send(properties.DiscordErrorNotificationUrl(), DiscordEmbed{
		Title:       "🚨 PM2.5 conversion failed",
		Description: errorMessage,
		Color:       16711680, // Red color
	})
}

func SendDiscordSuccessNotification(successMessage string) error {
	return send(properties.DiscordSuccessNotificationUrl(), DiscordEmbed{
		Title:       "✅ PM2.5 conversion finished",
		Description: successMessage,
		Color:       65280, // Green color
	})
}

// send posts embed to url. An empty url means notifications are off.
func send(url string, embed DiscordEmbed) error {
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}

	return nil
}
