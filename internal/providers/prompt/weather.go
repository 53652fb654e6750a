package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"imagestudio/internal/domain"
)

// DefaultAspectRatio is used when the request omits or garbles the ratio.
const DefaultAspectRatio = "9:16"

// allowedAspectRatios maps each supported ratio to the orientation word used
// in the image template.
var allowedAspectRatios = map[string]string{
	"9:16": "豎向",
	"4:5":  "豎向",
	"3:4":  "豎向",
	"1:1":  "方形",
	"16:9": "橫向",
	"4:3":  "橫向",
	"3:2":  "橫向",
}

// ExampleFacts is the sample object embedded in the reasoning prompt.
var ExampleFacts = domain.WeatherFacts{
	NativeCityName:      "東京",
	NativeDateFormatted: "2024年1月1日 月曜日",
	WeatherCondition:    "晴れ",
	TempRange:           "3°C - 10°C",
}

// NormalizeAspectRatio returns a supported ratio token, falling back to
// DefaultAspectRatio.
func NormalizeAspectRatio(aspect string) string {
	aspect = strings.ReplaceAll(strings.TrimSpace(aspect), " ", "")
	if _, ok := allowedAspectRatios[aspect]; ok {
		return aspect
	}
	return DefaultAspectRatio
}

func orientation(aspect string) string {
	return allowedAspectRatios[NormalizeAspectRatio(aspect)]
}

// ExampleFactsJSON renders ExampleFacts exactly as it appears in the reasoning prompt.
func ExampleFactsJSON() string {
	raw, err := json.Marshal(ExampleFacts)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// BuildReasoningPrompt asks the text model for the localized weather facts of
// city at the given instant. The timestamp is supplied by the caller.
func BuildReasoningPrompt(city string, nowUTC time.Time, lang Language) string {
	instr := lang.Instruction()
	sb := &strings.Builder{}
	sb.WriteString("You are a weather data assistant.\n")
	fmt.Fprintf(sb, "The user wants a weather card for the city: \"%s\".\n\n", strings.TrimSpace(city))
	fmt.Fprintf(sb, "Current System UTC Time: %s\n", nowUTC.UTC().Format(time.RFC3339))
	fmt.Fprintf(sb, "Target Language: %s\n\n", instr)
	sb.WriteString("Task:\n")
	sb.WriteString("1. Identify the city's location and timezone.\n")
	sb.WriteString("2. Calculate the CURRENT local date and time for that city based on the UTC time provided above.\n")
	sb.WriteString("3. Determine the likely current weather condition for the season and latitude. Use \"Sunny\" only when unsure, but stay realistic.\n")
	sb.WriteString("4. Provide the following fields strictly in JSON format:\n")
	fmt.Fprintf(sb, "    - \"native_city_name\": The name of the city translated into %s.\n", instr)
	fmt.Fprintf(sb, "    - \"native_date_formatted\": The current local date formatted in %s.\n", instr)
	fmt.Fprintf(sb, "    - \"weather_condition\": The weather condition translated into %s.\n", instr)
	sb.WriteString("    - \"temp_range\": A realistic temperature range for today in the local unit (e.g. \"15°C - 20°C\").\n")
	sb.WriteString("If the city does not exist or cannot be resolved, respond with {\"error\": \"<reason>\"} instead.\n\n")
	fmt.Fprintf(sb, "Example output for Tokyo in Japanese: %s\n\n", ExampleFactsJSON())
	sb.WriteString("Output JSON only. No markdown.")
	return sb.String()
}

// BuildImagePrompt renders the fixed weather card template for facts. Values
// are inserted verbatim between corner brackets.
func BuildImagePrompt(facts domain.WeatherFacts, aspect string, lang Language) string {
	aspect = NormalizeAspectRatio(aspect)
	lines := []string{
		"[畫面設定]",
		fmt.Sprintf("呈現一個清晰的、45° 俯視角度的%s（%s）等距縮小 3D 卡通場景。", orientation(aspect), aspect),
		fmt.Sprintf("畫面中心以「%s」的代表性地標為主體，展現精準細緻的建模。", facts.NativeCityName),
		"",
		"[風格與材質]",
		"場景使用柔和、細膩的質感，採用逼真的 PBR 材質，並搭配自然柔和的光影效果。",
		"整體視覺風格清新、舒心、簡約。背景為柔和的純色，以凸顯主要內容。",
		"",
		"[天氣氛圍整合]",
		fmt.Sprintf("當前天氣為「%s」。請將天氣元素以創意方式融入城市建築，使城市景觀與大氣條件產生動態互動（例如：雨天時街道有積水倒影、晴天時有明亮光斑、多雲時有柔和漫射光、下雪時有積雪），打造沉浸式的天氣氛圍。", facts.WeatherCondition),
		"",
		"[文字與 UI 版面]",
		fmt.Sprintf("在畫面上方中央展示明顯的「%s」圖示（3D Icon）。", facts.WeatherCondition),
		fmt.Sprintf("* **城市名稱**：位於圖示正上方，顯示「%s」（大字）。", facts.NativeCityName),
		fmt.Sprintf("* **日期**：位於圖示下方，顯示「%s」（小字）。", facts.NativeDateFormatted),
		fmt.Sprintf("* **氣溫**：位於日期下方，顯示「%s」（中字）。", facts.TempRange),
		fmt.Sprintf("* **重要：確保畫面上的所有文字都嚴格使用 %s 書寫。** 文字與圖示不需背景框，可與建築輕微重疊，保持畫面通透。", lang.imageInstruction()),
	}
	return strings.Join(lines, "\n")
}
