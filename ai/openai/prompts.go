package openai

import (
	"fmt"
	"strings"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "entity_name": {"type": "string"},
          "entity_type": {"type": "string"},
          "entity_description": {"type": "string"}
        },
        "required": ["entity_name", "entity_type", "entity_description"],
        "additionalProperties": false
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source_entity": {"type": "string"},
          "target_entity": {"type": "string"},
          "relationship_keywords": {"type": "array", "items": {"type": "string"}},
          "relationship_description": {"type": "string"},
          "relationship_strength": {"type": "number", "minimum": 0, "maximum": 10}
        },
        "required": ["source_entity", "target_entity", "relationship_description"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities", "relationships"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `You build knowledge graphs. Identify the entities in the given text and the
relationships between them, and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- entity_name is the name as written in the text, capitalized. Use the same name every time the entity appears.
- entity_type must be exactly one of: %s. If none fits, use "other".
- entity_description summarizes the entity's attributes and activities using only information in the text.
- A relationship connects two entities that are both listed in "entities" and are clearly related in the text.
- relationship_keywords are a few high-level words describing the nature of the relationship.
- relationship_strength is a number from 1 (weak) to 10 (strong).
- Do not relate an entity to itself.
- Include only what is explicitly stated or clearly implied by the text. Do not hallucinate.
- If nothing can be identified, return {"entities": [], "relationships": []}.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Alex joined Acme Corp in Berlin to lead the robotics team."
Output:
{
  "entities": [
    {"entity_name":"ALEX","entity_type":"person","entity_description":"Alex leads the robotics team at Acme Corp."},
    {"entity_name":"ACME CORP","entity_type":"organization","entity_description":"Acme Corp is a company with a robotics team in Berlin."},
    {"entity_name":"BERLIN","entity_type":"location","entity_description":"Berlin is the city where Acme Corp's robotics team is based."}
  ],
  "relationships": [
    {"source_entity":"ALEX","target_entity":"ACME CORP","relationship_keywords":["employment","leadership"],"relationship_description":"Alex joined Acme Corp to lead its robotics team.","relationship_strength":9},
    {"source_entity":"ACME CORP","target_entity":"BERLIN","relationship_keywords":["location"],"relationship_description":"Acme Corp's robotics team is in Berlin.","relationship_strength":6}
  ]
}`

const userPromptTemplate = `Text:
%s`

const gleaningPrompt = `Some entities and relationships were missed in the last extraction.
Return ONLY the missed entities and relationships from the same text, using the same JSON schema.
Do not repeat anything already returned. If nothing was missed, return {"entities": [], "relationships": []}.`

// buildSystemPrompt creates the system prompt with entity types embedded.
func buildSystemPrompt(entityTypes []string) string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(entityTypes, ", "))
}

func buildUserPrompt(content string) string {
	return fmt.Sprintf(userPromptTemplate, content)
}
