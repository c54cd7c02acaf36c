package portrait

import "fmt"

// OutputAspectRatio - vertical portrait format requested from the model
const OutputAspectRatio = "9:16"

// BuildPrompt - restyling instruction; both user texts are embedded verbatim
func BuildPrompt(clothingStyle, scenery string) string {
	return fmt.Sprintf("TROQUE A ROUPA E O CENÁRIO DA PESSOA NESTA FOTO. "+
		"MANTENHA O ROSTO E OS TRAÇOS ORIGINAIS, MAS MUDE O ESTILO DE ROUPA PARA: %s. "+
		"ALTERE O CENÁRIO PARA: %s. "+
		"ILUMINAÇÃO CINEMATOGRÁFICA, TEXTURAS REALISTAS, DETALHES ULTRA-DEFINIDOS, FOCO SUAVE, "+
		"PROFUNDIDADE DE CAMPO NATURAL. FORMATO VERTICAL 9:16, NÍTIDEZ ALTA, REALISMO 8K.",
		clothingStyle, scenery)
}
