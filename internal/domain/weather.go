package domain

import "strings"

// WeatherQuery is the validated input of a weather card request.
type WeatherQuery struct {
	City        string `json:"city" validate:"required,max=200"`
	AspectRatio string `json:"aspectRatio"`
	Language    string `json:"language" validate:"max=64"`
}

// WeatherFacts is the localized data returned by the reasoning step.
type WeatherFacts struct {
	NativeCityName      string `json:"native_city_name"`
	NativeDateFormatted string `json:"native_date_formatted"`
	WeatherCondition    string `json:"weather_condition"`
	TempRange           string `json:"temp_range"`
}

// Artifact is a generated image carried as base64 payload.
type Artifact struct {
	MIMEType string
	Data     string
}

// ArtifactMIMEType is the MIME type advertised for every generated image.
const ArtifactMIMEType = "image/jpeg"

// DataURI renders the artifact as a self-describing data URI.
func (a Artifact) DataURI() string {
	mime := strings.TrimSpace(a.MIMEType)
	if mime == "" {
		mime = ArtifactMIMEType
	}
	return "data:" + mime + ";base64," + a.Data
}
