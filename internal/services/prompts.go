package services

// LLM prompt constants for consistent model interactions

const (
	// CHUNK_ANALYSIS_PROMPT is used for the per-chunk summary of tabular data
	CHUNK_ANALYSIS_PROMPT = `You are an expert business data analyst. Analyze the following chunk of tabular business data and provide a clear, concise, and actionable summary for a non-technical business audience.

DATA CHUNK:
%s

Structure your analysis using:
- Key Trends
- Notable Changes or Patterns
- Possible Causes or Explanations
- Actionable Insights & Recommendations

Be specific. Use numbers or percentages where relevant. Avoid generic advice. Keep your summary under 200 words.`

	// TAG_EXTRACTION_PROMPT asks for a strict JSON array of category tags
	TAG_EXTRACTION_PROMPT = `Given the business analysis below, extract and return a concise list of high-level tags that represent the core insights.

Analysis:
"""%s"""

STRICT INSTRUCTIONS:
- Return ONLY a valid JSON array of lowercase strings, nothing else.
- The array must contain at least 3 and no more than 10 unique tags.
- Each tag must be in snake_case format.
- NO explanations, comments, markdown formatting, or additional text.
- Example of an ideal response: ["market_trends", "profitability", "customer_segmentation"]`

	// INSIGHT_EXTRACTION_PROMPT asks for structured chart-ready insights
	INSIGHT_EXTRACTION_PROMPT = `Extract key business insights from this analysis and return them as a JSON object.

Return only valid JSON in this exact format:
{
  "insights": [
    {
      "label": "Revenue Growth",
      "value": "$15,000",
      "trend": "up",
      "context": "last quarter",
      "data": [
        {"name": "Q1", "value": 5000},
        {"name": "Q2", "value": 10000}
      ]
    }
  ]
}

Rules:
- "trend" must be exactly "up", "down", or "stable"
- "data" should contain 2-5 items with "name" (string) and "value" (number)
- If no data breakdown exists, use empty array: []
- Maximum 5 insights
- Return only the JSON, no other text

Analysis to extract from:
%s`

	// FOLLOWUP_SYSTEM_PROMPT drives the tool-using reasoning loop for
	// follow-up questions. The schema line is filled in per session.
	FOLLOWUP_SYSTEM_PROMPT = `You are an expert data analyst assistant answering questions about a business data table stored in a SQL database.

The table is named "data" and has this schema:
%s

You answer questions by reasoning step by step and querying the table. You have exactly one tool:

execute_sql: runs a single SQLite SELECT statement against the "data" table and returns the result.

Use this exact format for each step:

Thought: what you need to find out next
Action: execute_sql
Action Input: SELECT ...

After each action you will receive an Observation with the query result. Repeat Thought/Action/Action Input as needed. When you know the answer, finish with:

Final Answer: your complete answer

Guidelines:
- Always base conclusions on query results, never on assumptions.
- Include specific numbers and comparisons in the final answer.
- Use clear formatting for numbers (e.g., "$1,234.56", "45.2%%").
- If the data cannot answer the question, say what is missing.`
)
