package brand

import "strings"

const template = "You are a video analysis model. Analyze the given video and the target brand, " +
	"and return a structured JSON object only, with no text outside the JSON.\n\n" +
	"Goal:\n" +
	"Provide an overall summary, chapter titles and summaries, a comprehensive list of all brand mentions " +
	"for the target brand, and include the main topics and hashtags.\n\n" +
	"Brand to detect: {brand}\n\n" +
	"Rules:\n" +
	"- Output must be valid JSON matching the schema below.\n" +
	"- Timestamps use HH:MM:SS (zero-padded). Chapters have non-overlapping start/end.\n" +
	"- A brand mention is explicit when spoken, shown, or on-screen; implicit when inferred.\n" +
	"- Topics should reflect the main themes (prefer lowercase snake_case).\n" +
	"- Hashtags should be concise and relevant (3-8, standard #tag format).\n" +
	"- Include start and end timestamps for every brand mention.\n" +
	"- Keep sentences concise (under ~280 chars).\n" +
	"- Never include any text outside the JSON.\n\n" +
	"JSON schema:\n{json_schema}\n\n" +
	"Instructions:\n" +
	"1. Segment the video into meaningful chapters; fill id, title, summary, timestamps. " +
	"Sponsor mentions longer than 5 seconds get their own chapter.\n" +
	"2. List all brand mentions across the entire video in brand_mentions.\n" +
	"3. mention_type is one of: sponsor_segment, on_screen_element, verbal_mention, product_visual, " +
	"product_demo, comparison_section, call_to_action, affiliate_disclosure, giveaway_or_promo, end_screen. " +
	"For on_screen_element set subtype to one of: brand_name_text, logo, website, qr_code, coupon_code, " +
	"lower_third, banner_overlay, card_overlay, watermark.\n" +
	"4. Brand mentions can overlap (a logo inside a broader product_demo segment).\n" +
	"5. If none are detected, return an empty array for brand_mentions.\n" +
	"6. If a mention is not tied to a single chapter, omit chapter_id.\n" +
	"7. Add main topics and 3-8 concise hashtags that reflect the video themes.\n" +
	"8. Output strictly valid JSON (no markdown, no commentary).\n"

// Prompt renders the analysis prompt for brand with the schema embedded
func Prompt(brand string) string {
	schema, err := Schema()
	if err != nil {
		schema = []byte("{}")
	}
	r := strings.NewReplacer("{brand}", strings.TrimSpace(brand), "{json_schema}", string(schema))
	return r.Replace(template)
}
