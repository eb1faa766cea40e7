package extract

import (
	"fmt"
	"strings"
)

const titleExtractionPrompt = `You are an assistant that reads Chinese automotive parts catalog images.
Your ONLY job is to extract the title text from the top of the page,
which appears above the table columns.

The title format is usually: table-number followed by Chinese text, optionally
ending with a continuation marker.

Return ONLY a valid JSON object, no markdown, no explanation:
{
  "raw_title": "<the full title text exactly as it appears>"
}

If this page is a diagram (no table), return:
{
  "raw_title": null
}`

const multipleTitlesPrompt = `You are an assistant that reads Chinese automotive parts catalog pages.
The page is part of a Table of Contents or index listing category names in Chinese.

Your job is to extract every category name visible on the page. Ignore page
numbers, section numbers, dot leaders, headers, and footers.

Return ONLY a valid JSON object, no markdown, no explanation:
{
  "categories_cn": ["<Chinese category name>", ...]
}

If the page contains no category names, return:
{
  "categories_cn": []
}`

const translationPrompt = `You are a professional automotive parts catalog translator (Chinese to English).
Translate each Chinese title in the input list into clear, professional English.
These are table titles from a heavy-truck parts catalog.

Return ONLY a valid JSON object, no markdown, no explanation:
{
  "translations": [
    {
      "cn": "<original Chinese title>",
      "en": "<English translation>"
    }
  ]
}

Rules:
- Keep the same order as the input.
- Return exactly one entry per input title.
- Use standard automotive terminology.
- Do NOT add any extra fields.`

const tocExtractionPrompt = `You are a bilingual (Chinese-English) automotive parts catalog translator.

You will receive raw text extracted from the Table of Contents of a Chinese-language
parts manual. The ToC lists category names in Chinese only.

Your task:
1. Identify every category name listed in the ToC. Ignore page numbers, section
   numbers, dot leaders, headers, footers, and any non-category text.
2. Translate each Chinese category name into clear, professional English.
3. Return ONLY a valid JSON object, no markdown fences, no explanation.

OUTPUT FORMAT (strictly):
{
  "categories": [
    {
      "category_name_en": "<English translation>",
      "category_name_cn": "<original Chinese text>",
      "category_description": ""
    }
  ]
}

RULES:
- Preserve the original order from the ToC.
- Do NOT include duplicates.
- Do NOT add data_type or any nested arrays.
- Use concise, accurate automotive terminology in English.
- Return ONLY the raw JSON object, no markdown code blocks.`

const markdownExtractionPrompt = `You are a data extraction expert. Extract the category structure from the text
of an automotive parts catalog.

Structural conventions of this document family:
1. Numbered section headers (e.g. "3 离合器与操纵机构") are categories.
2. Lines under a header of the form "<code> <name>" are subcategories; the code
   is an alphanumeric part identifier and must be copied verbatim.
3. Bilingual "Chinese / English" names on the same line are split into the
   separate cn/en fields.
4. Return ONLY valid JSON, no markdown formatting, no explanations.

Output JSON schema:
{
  "categories": [
    {
      "category_name_en": "string",
      "category_name_cn": "string (empty if not present)",
      "category_description": "",
      "data_type": [
        {
          "type_category_name_en": "string",
          "type_category_name_cn": "string (empty if not present)",
          "type_category_description": "",
          "type_category_code": "string (verbatim part code, empty if none)"
        }
      ]
    }
  ]
}`

const transcriptionPrompt = `You are an assistant that transcribes automotive parts catalog pages.
Transcribe all readable text on the page, preserving line breaks and reading
order. Keep section numbers, part codes, and bilingual names exactly as they
appear. Do not describe diagrams.

Return ONLY a valid JSON object, no markdown, no explanation:
{
  "text": "<the transcribed page text>"
}

If the page contains no readable text, return:
{
  "text": ""
}`

// correctivePrompt builds the follow-up user turn sent when a previous
// response failed schema validation. The named errors are fed back so the
// model fixes exactly those issues.
func correctivePrompt(validationErrors []string) string {
	var sb strings.Builder
	sb.WriteString("The previous response had these errors:\n")
	for _, e := range validationErrors {
		fmt.Fprintf(&sb, "- %s\n", e)
	}
	sb.WriteString(`
Please produce the output again, ensuring:
1. Valid JSON format (no markdown code blocks)
2. All required fields are present
3. Correct data types (arrays, objects, strings)`)
	return sb.String()
}
