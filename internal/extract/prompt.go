package extract

import (
	"fmt"
	"strings"
)

// Strictness controls how liberally ungraded directive language is
// accepted as a recommendation.
type Strictness string

const (
	Strict Strictness = "strict"
	Medium Strictness = "medium"
	Loose  Strictness = "loose"
)

// ParseStrictness maps a config value onto a Strictness. Blank means Medium.
func ParseStrictness(s string) (Strictness, error) {
	switch v := Strictness(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return Medium, nil
	case Strict, Medium, Loose:
		return v, nil
	default:
		return "", fmt.Errorf("unknown strictness %q (want strict, medium or loose)", s)
	}
}

const itemShape = `{ "items": [ {"recommendation_text":"...", "strength_raw":"...", "evidence_raw":"...", "source_snippet":"..."} ] }`

const extractionRules = `Return ONLY valid JSON with this exact shape:
` + itemShape + `

Rules:
- Use ONLY what is explicitly present in the provided text; never infer.
- recommendation_text: include the full actionable recommendation sentence(s); do not truncate clauses.
- strength_raw: e.g. 'Class I', 'Strong recommendation' if explicitly stated; else empty string.
- evidence_raw: e.g. 'Level A', 'LOE B', 'moderate certainty' if explicitly stated; else empty string.
- source_snippet: verbatim excerpt <= 240 chars supporting the recommendation and any grading.
- Strings only; never null. If none qualify, return {"items":[]}`

const strictExtraction = `You are a STRICT extractor of formal clinical guideline recommendations.
Input is one section (or part of a section) of a guideline converted to markdown, with its heading path.

Only output items when you are confident the text is intended as an actual guideline recommendation or statement:
- It appears as a list item, table row, or boxed/callout text.
- Or it is explicitly labeled (Recommendation, Statement, Practice Point, Key recommendation).
- Or it carries explicit strength or grade markers (Class, Level, LOE, GRADE).

Do NOT extract:
- Background, rationale, narrative discussion, evidence summaries, methods.
- Recommended daily allowances, reporting checklists, or recommendations for future research.
- Anything that is not an actionable clinical directive.

For plain paragraphs be EXTRA strict: only extract when clearly labeled or graded. If unsure, omit.

`

const mediumExtraction = `You extract clinical guideline recommendations with HIGH precision and balanced recall.
Input is one section (or part of a section) of a guideline converted to markdown, with its heading path.

A recommendation is an actionable clinical directive intended as guidance for clinicians or patients.
Prefer TRUE recommendations; skip narrative evidence summaries.

Strong signals (any one can be sufficient):
- List items, table rows, or callout text.
- A heading path that suggests recommendations, guidance, statements, an algorithm, or a summary.
- Directive language (should, must, we recommend, do not, avoid, consider, offer, use, initiate, administer, discontinue).
- Explicit labels or grading (Recommendation, Statement, Practice Point, Class, Level, LOE, GRADE).

For plain paragraphs extract only when the text is directive AND is either under a recommendation-like
heading, explicitly labeled or graded, or short (roughly 450 characters of directive text or less).
If a paragraph mixes rationale and recommendation, extract ONLY the recommendation sentence(s).

Do NOT extract:
- Background, rationale-only discussion, evidence summaries, methods.
- Recommended daily allowances, reporting checklists, or recommendations for future research.
- Vague non-directive statements ("may be beneficial") unless clearly framed as guidance.

`

const looseExtraction = `You extract clinical guideline recommendations with good recall while avoiding obvious false positives.
Input is one section (or part of a section) of a guideline converted to markdown, with its heading path.

Extract statements that read like actionable guidance (directive language) even if not graded, especially
list items, table rows, callouts, short directive sentences, or text under a heading that suggests
recommendations, guidance, statements, an algorithm, or a summary.

When a passage includes rationale and recommendation, extract ONLY the directive sentence(s).

Do NOT extract:
- Recommended daily allowances, reporting checklists, or recommendations for future research.
- Methods, literature review, background.

`

// ExtractionInstructions returns the extraction instructions for s.
func ExtractionInstructions(s Strictness) string {
	switch s {
	case Strict:
		return strictExtraction + extractionRules
	case Loose:
		return looseExtraction + extractionRules
	default:
		return mediumExtraction + extractionRules
	}
}

const triageInstructions = `You triage sections of a clinical guideline to find where its recommendations live.
Input is a JSON array of sections. Each has sec_idx (identifier), path (heading breadcrumb) and
preview (the start of the section, directive or grading hint lines, and its end).

Return ONLY valid JSON with this exact shape:
{"keep":[1,2],"maybe":[3]}

Rules:
- keep: sections that clearly contain actionable clinical recommendations, graded statements, or practice points.
- maybe: sections that might contain recommendations mixed with background or tables.
- Leave out sections that are only methods, references, disclosures, author lists, acknowledgments, or background.
- Use only sec_idx values from the input. If none qualify, return {"keep":[],"maybe":[]}`

func classifyInstructions(labels []string, repeats, other string) string {
	var sb strings.Builder
	sb.WriteString("You assign clinical guideline recommendations to sections of a clinician-facing summary.\n")
	sb.WriteString("Sections (use these labels exactly):\n")
	for _, l := range labels {
		sb.WriteString("- ")
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\nInput is a JSON array of items, each with i (its number) and text.\n")
	sb.WriteString("Return ONLY valid JSON with this exact shape:\n")
	sb.WriteString(`{"items":[{"i":1,"section":"..."}]}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Every input item must appear exactly once, mapped to exactly one section.\n")
	fmt.Fprintf(&sb, "- Choose the best label from the list; use %q only when nothing fits.\n", other)
	fmt.Fprintf(&sb, "- If an item repeats or nearly duplicates an EARLIER item in the input, assign it to %q regardless of topic. This rule overrides topical classification.\n", repeats)
	sb.WriteString("- No extra keys and no commentary.")
	return sb.String()
}

const titleYearInstructions = `You extract metadata from a clinical guideline document excerpt.
Return ONLY valid JSON (no markdown) with this exact shape:
{"guideline_name":"...","pub_year":"..."}
Rules:
- Use ONLY what is explicitly present in the text.
- guideline_name: the most official/primary guideline title as shown.
- pub_year: a 4-digit year ONLY if explicitly stated as the publication year; else empty string.
- If multiple years appear, choose the one most clearly tied to publication.
- Strings only; never null; no extra keys.`

const specialtyInstructions = `You extract medical specialty labels from a clinical guideline title and excerpt.
Return a comma-separated list of specialty names (or an empty string if unclear).
Rules:
- Output MUST be ONLY the comma-separated specialties on one line (no extra text).
- You may return multiple specialties if truly relevant.
- Do not invent specialties; use only what is explicitly stated or strongly implied.
- Keep it concise (prefer 1-3; max 5).`

const summaryInstructions = `You are helping a clinician synthesize multiple clinical guidelines saved to an evidence cart.
Write ONE paragraph of high-yield interpretive thoughts across the set.
Hard rules:
- Use ONLY information in the provided blocks. Do not invent details.
- Do NOT claim a formal meta-analysis; this is a qualitative synthesis.
- If guidelines conflict or are too heterogeneous or unclear, say so plainly.
- Mention key limitations that are explicitly apparent without overreaching.
- Cite source labels exactly as shown in SOURCES in parentheses (e.g. GUIDELINE 2).
- Output must be a single paragraph (no bullets, no headings).
- Tone: Clear and organized.`

const answerInstructions = `You are helping a clinician answer a focused clinical question using multiple guidelines.
Write an answer to the question in the following format: first, give a concise answer (best attempt).
Next, summarize the evidence that supports the answer. Use bullet points.
Next, summarize the limitations of that evidence, evidence that conflicts with it, or evidence that supports an alternate answer. Use bullet points.
Hard rules:
- Use ONLY information in the provided blocks. Do not invent details.
- Do NOT claim a formal meta-analysis; this is a qualitative synthesis.
- If guidelines conflict or are too heterogeneous or unclear, say so plainly.
- If it is difficult to answer the question in a single way, say so plainly and give the possible answers with the evidence for each.
- Mention key limitations that are explicitly apparent without overreaching.
- When making a substantive claim, cite source label(s) exactly as shown in SOURCES in parentheses (e.g. GUIDELINE 5).
- Title each section with a bold heading then a colon.
- Tone: Clear and organized.`
