package service

import (
	"strings"

	"github.com/styleguard/styleguard/internal/langdetect"
)

var languageInstructions = map[string]string{
	"fr": "Ce texte est en français. Corrigez uniquement les fautes d'orthographe et de grammaire.",
	"en": "This text is in English. Correct only spelling and grammar mistakes.",
	"es": "Este texto está en español. Corrige solo los errores ortográficos y gramaticales.",
	"de": "Dieser Text ist auf Deutsch. Korrigiere nur Rechtschreib- und Grammatikfehler.",
	"it": "Questo testo è in italiano. Correggi solo errori di ortografia e grammatica.",
	"ru": "Этот текст на русском языке. Исправьте только орфографические и грамматические ошибки.",
	"pl": "Ten tekst jest w języku polskim. Popraw tylko błędy ortograficzne i gramatyczne.",

	langdetect.Unknown: "Correct only spelling and grammar mistakes in this text, regardless of language.",
}

const promptTemplate = `# Correction de texte

{{instruction}}

## INSTRUCTIONS IMPORTANTES:
1. Conserve EXACTEMENT le style, le dialecte, et le registre de langue de l'auteur
2. Maintiens les expressions idiomatiques, argot et tournures spécifiques
3. Ne change PAS le ton ou le niveau de formalité
4. Corrige UNIQUEMENT:
   - Les fautes d'orthographe
   - Les erreurs grammaticales évidentes
   - La ponctuation incorrecte
5. NE REFORMULE PAS le texte
6. NE SIMPLIFIE PAS le vocabulaire
7. NE CHANGE PAS le dialecte ou l'accent
8. NE RENVOIE QUE le texte corrigé

## TEXTE À CORRIGER:
{{text}}

## RÉPONSE (texte corrigé uniquement):`

func instructionFor(lang string) string {
	if s, ok := languageInstructions[lang]; ok {
		return s
	}
	return languageInstructions[langdetect.Unknown]
}

// BuildPrompt embeds text verbatim. The instruction is substituted first so
// a text containing the {{instruction}} marker is left untouched.
func BuildPrompt(lang, text string) string {
	p := strings.Replace(promptTemplate, "{{instruction}}", instructionFor(lang), 1)
	return strings.Replace(p, "{{text}}", text, 1)
}
