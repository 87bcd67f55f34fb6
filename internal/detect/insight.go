package detect

import (
	"strings"

	"github.com/lithammer/dedent"
)

// soilInsight pairs a soil-type substring with its educational text. The
// table is iterated in order and the first match wins; the order is
// observable behavior and must not be changed.
type soilInsight struct {
	substring string
	text      string
}

var soilInsights = []soilInsight{
	{"clay", dedent.Dedent(`
		Clay soil is made of very fine particles that hold water and nutrients
		well but drain slowly. It is fertile yet heavy to work, and suits crops
		like rice, wheat and pulses that tolerate standing moisture.`)},
	{"alluvial", dedent.Dedent(`
		Alluvial soil is deposited by rivers and is among the most fertile
		soils. Rich in potash and lime, it supports intensive farming of
		cereals, sugarcane and vegetables across river plains and deltas.`)},
	{"black", dedent.Dedent(`
		Black soil, also called regur, is formed from volcanic rock and is
		known for retaining moisture. Its high clay and lime content makes it
		ideal for cotton, along with millets, oilseeds and citrus.`)},
	{"red", dedent.Dedent(`
		Red soil gets its color from iron oxide and is usually low in nitrogen
		and humus. With proper fertilization and irrigation it grows
		groundnut, millets, potato and fruit crops well.`)},
}

// InsightFor maps the top detected class to its educational text. Insights
// exist only for the soil model; any other model, an empty class, or a class
// matching no known soil type yields "".
func InsightFor(model Model, topClass string) string {
	if model != ModelSoil {
		return ""
	}

	name := strings.ToLower(strings.TrimSpace(topClass))
	if name == "" {
		return ""
	}

	for _, ins := range soilInsights {
		if strings.Contains(name, ins.substring) {
			return strings.TrimSpace(ins.text)
		}
	}
	return ""
}
