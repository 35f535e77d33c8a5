package syncing

import (
	"slices"
	"strings"

	"github.com/vfg2006/ad-performance-sync/pkg/utils"
)

const customConversionPrefix = "offsite_conversion.custom."

type conversionGroup struct {
	name  string
	types []string
}

// conversionPriority é a ordem de prioridade do resultado. Dentro de um grupo os tipos são
// aliases do mesmo evento (pixel, omni, onsite) e vale o primeiro com valor positivo.
var conversionPriority = []conversionGroup{
	{name: "purchase", types: []string{"purchase", "offsite_conversion.fb_pixel_purchase", "omni_purchase", "onsite_web_purchase"}},
	{name: "lead", types: []string{"lead", "offsite_conversion.fb_pixel_lead", "onsite_conversion.lead_grouped", "leadgen_grouped"}},
	{name: "complete_registration", types: []string{"complete_registration", "offsite_conversion.fb_pixel_complete_registration", "omni_complete_registration"}},
	{name: "app_install", types: []string{"app_install", "mobile_app_install", "omni_app_install"}},
	{name: "add_to_cart", types: []string{"add_to_cart", "offsite_conversion.fb_pixel_add_to_cart", "omni_add_to_cart"}},
	{name: "initiate_checkout", types: []string{"initiate_checkout", "offsite_conversion.fb_pixel_initiate_checkout", "omni_initiated_checkout"}},
	{name: "messaging_conversation", types: []string{"onsite_conversion.messaging_conversation_started_7d"}},
	{name: "contact", types: []string{"contact", "contact_total", "offsite_conversion.fb_pixel_contact"}},
	{name: "schedule", types: []string{"schedule", "schedule_total", "offsite_conversion.fb_pixel_schedule"}},
	{name: "submit_application", types: []string{"submit_application", "submit_application_total", "offsite_conversion.fb_pixel_submit_application"}},
	{name: "subscribe", types: []string{"subscribe", "subscribe_total", "offsite_conversion.fb_pixel_subscribe"}},
	{name: "start_trial", types: []string{"start_trial", "start_trial_total", "offsite_conversion.fb_pixel_start_trial"}},
}

// eventSynonyms liga os nomes usados na tabela de valores aos nomes normalizados.
var eventSynonyms = map[string]string{
	"registration":           "complete_registration",
	"complete_registration":  "registration",
	"install":                "app_install",
	"app_install":            "install",
	"messaging":              "messaging_conversation",
	"messaging_conversation": "messaging",
}

type conversion struct {
	Count float64
	Type  string
	Found bool
}

// resolveConversion percorre a prioridade e para no primeiro tipo positivo.
// Sem nenhum, usa a conversão personalizada de menor chave com valor positivo.
func resolveConversion(actions map[string]float64) conversion {
	for _, group := range conversionPriority {
		for _, t := range group.types {
			if v := actions[t]; v > 0 {
				return conversion{Count: v, Type: group.name, Found: true}
			}
		}
	}

	custom := make([]string, 0)
	for key, v := range actions {
		if strings.HasPrefix(key, customConversionPrefix) && v > 0 {
			custom = append(custom, key)
		}
	}
	if len(custom) == 0 {
		return conversion{}
	}

	key := slices.Min(custom)
	return conversion{Count: actions[key], Type: key, Found: true}
}

// resolveConversionValue: valor de compra informado pelo Meta → contagem × valor
// configurado do evento → nil.
func resolveConversionValue(conv conversion, actionValues map[string]float64, eventValues map[string]float64) *float64 {
	return firstOf[*float64](nil,
		func() (*float64, bool) {
			for _, t := range conversionPriority[0].types {
				if v := actionValues[t]; v > 0 {
					value := utils.RoundWithTwoDecimalPlace(v)
					return &value, true
				}
			}
			return nil, false
		},
		func() (*float64, bool) {
			if !conv.Found {
				return nil, false
			}
			unit, ok := lookupEventValue(conv.Type, eventValues)
			if !ok {
				return nil, false
			}
			value := utils.RoundWithTwoDecimalPlace(conv.Count * unit)
			return &value, true
		},
	)
}

func lookupEventValue(eventType string, eventValues map[string]float64) (float64, bool) {
	key := strings.ToLower(eventType)
	if v, ok := eventValues[key]; ok {
		return v, true
	}
	if synonym, ok := eventSynonyms[key]; ok {
		v, ok := eventValues[synonym]
		return v, ok
	}
	return 0, false
}
