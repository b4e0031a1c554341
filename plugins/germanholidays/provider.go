// Package germanholidays provides event providers for the holidays of
// Germany, organized along the federal structure: a common federal set
// plus per-state additions.
//
// The holiday tables are pure data; resolution is handled by the shared
// default algorithm of plugin.StaticEventProvider. Each state provider is
// built by composition from the federal set, so only actually offered
// providers are registered.
package germanholidays

import (
	"time"

	"calingen/internal/model"
	"calingen/internal/plugin"
	"calingen/internal/recurrence"
)

func holiday(title string, rule recurrence.Rule) plugin.EntryDefinition {
	return plugin.EntryDefinition{Title: title, Category: model.CategoryHoliday, Rule: rule}
}

// Fixed-date and Easter-relative holidays. Most German holidays are based
// off the Easter date, which shifts from year to year.
var (
	neujahr             = holiday("New Year", recurrence.Yearly{Month: time.January, Day: 1})
	heiligeDreiKoenige  = holiday("Epiphany", recurrence.Yearly{Month: time.January, Day: 6})
	frauentag           = holiday("Women's Day", recurrence.Yearly{Month: time.March, Day: 8})
	karfreitag          = holiday("Good Friday", recurrence.EasterOffset{Days: -2})
	osterSonntag        = holiday("Easter Sunday", recurrence.EasterOffset{Days: 0})
	osterMontag         = holiday("Easter Monday", recurrence.EasterOffset{Days: 1})
	tagDerArbeit        = holiday("Worker's Day", recurrence.Yearly{Month: time.May, Day: 1})
	christiHimmelfahrt  = holiday("Ascension", recurrence.EasterOffset{Days: 39})
	pfingstSonntag      = holiday("Pentecost Sunday", recurrence.EasterOffset{Days: 49})
	pfingstMontag       = holiday("Pentecost Monday", recurrence.EasterOffset{Days: 50})
	fronleichnam        = holiday("Corpus Christi", recurrence.EasterOffset{Days: 60})
	mariaHimmelfahrt    = holiday("Assumption of Mary", recurrence.Yearly{Month: time.August, Day: 15})
	weltkindertag       = holiday("Children's Day", recurrence.Yearly{Month: time.September, Day: 20})
	deutscheEinheit     = holiday("Day of German Unity", recurrence.Yearly{Month: time.October, Day: 3})
	reformationstag     = holiday("Reformation Day", recurrence.Yearly{Month: time.October, Day: 31})
	allerheiligen       = holiday("All Hallows", recurrence.Yearly{Month: time.November, Day: 1})
	ersterWeihnachtstag = holiday("Christmas Day", recurrence.Yearly{Month: time.December, Day: 25})
	zweiterWeihnachtstag = holiday("Boxing Day", recurrence.Yearly{Month: time.December, Day: 26})

	// The Wednesday between Nov 16 and Nov 22; not expressible as a fixed
	// date or an Easter offset.
	bussUndBettag = holiday("Day of Repentance",
		recurrence.MustRRule("FREQ=YEARLY;BYMONTH=11;BYDAY=WE;BYMONTHDAY=16,17,18,19,20,21,22"))
)

// federalHolidays applies to all states. Easter and Pentecost Sunday are
// not legal holidays everywhere, but they are Sundays nonetheless.
var federalHolidays = []plugin.EntryDefinition{
	neujahr,
	karfreitag,
	osterSonntag,
	osterMontag,
	tagDerArbeit,
	christiHimmelfahrt,
	pfingstSonntag,
	pfingstMontag,
	deutscheEinheit,
	ersterWeihnachtstag,
	zweiterWeihnachtstag,
}

func newProvider(id, title string, extra ...plugin.EntryDefinition) *plugin.StaticEventProvider {
	return &plugin.StaticEventProvider{
		Ident:   "germanholidays." + id,
		Name:    title,
		Entries: plugin.CombineEntries(federalHolidays, extra),
	}
}

// Providers returns all offered German holiday providers.
func Providers() []*plugin.StaticEventProvider {
	northern := []plugin.EntryDefinition{reformationstag}

	return []*plugin.StaticEventProvider{
		newProvider("federal", "German Federal Holidays"),
		newProvider("badenwuerttemberg", "Holidays of Baden-Württemberg",
			heiligeDreiKoenige, fronleichnam, allerheiligen),
		newProvider("bayern", "Holidays of Bayern",
			heiligeDreiKoenige, fronleichnam, mariaHimmelfahrt, allerheiligen),
		newProvider("berlin", "Holidays of Berlin", frauentag),
		newProvider("brandenburg", "Holidays of Brandenburg", northern...),
		newProvider("bremen", "Holidays of Bremen", northern...),
		newProvider("hamburg", "Holidays of Hamburg", northern...),
		newProvider("mecklenburgvorpommern", "Holidays of Mecklenburg-Vorpommern", northern...),
		newProvider("niedersachsen", "Holidays of Niedersachsen", northern...),
		newProvider("schleswigholstein", "Holidays of Schleswig-Holstein", northern...),
		newProvider("hessen", "Holidays of Hessen", fronleichnam),
		newProvider("nordrheinwestphalen", "Holidays of Nordrhein-Westphalen",
			fronleichnam, allerheiligen),
		newProvider("rheinlandpfalz", "Holidays of Rheinland-Pfalz",
			fronleichnam, allerheiligen),
		newProvider("saarland", "Holidays of Saarland",
			fronleichnam, allerheiligen, mariaHimmelfahrt),
		newProvider("sachsen", "Holidays of Sachsen", fronleichnam, bussUndBettag),
		newProvider("sachsenanhalt", "Holidays of Sachsen-Anhalt",
			heiligeDreiKoenige, reformationstag),
		newProvider("thueringen", "Holidays of Thüringen",
			fronleichnam, weltkindertag, reformationstag),
	}
}

func init() {
	for _, p := range Providers() {
		plugin.Events.MustRegister(p)
	}
}
