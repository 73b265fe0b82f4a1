package lexicon

func defaultGenres() []Genre {
	return []Genre{
		{
			Name:         "action",
			CatalogNames: []string{"Action", "Action & Adventure"},
			Aliases:      []string{"action packed", "superhero", "martial arts"},
			Keywords:     []string{"action", "fight", "fights", "battle", "explosive", "mission", "combat", "assassin", "chase", "showdown"},
		},
		{
			Name:         "adventure",
			CatalogNames: []string{"Adventure", "Action & Adventure"},
			Aliases:      []string{"adventures"},
			Keywords:     []string{"adventure", "journey", "quest", "expedition", "treasure", "explore", "voyage"},
		},
		{
			Name:         "animation",
			CatalogNames: []string{"Animation"},
			Aliases:      []string{"animated", "anime", "cartoon", "cartoons"},
			Keywords:     []string{"animation", "animated", "cartoon", "anime"},
		},
		{
			Name:         "comedy",
			CatalogNames: []string{"Comedy"},
			Aliases:      []string{"comedies", "comedic", "sitcom", "sitcoms", "rom com", "romcom"},
			Keywords:     []string{"comedy", "funny", "hilarious", "laugh", "comic", "humor", "humorous", "wacky", "misadventures", "prank"},
		},
		{
			Name:         "crime",
			CatalogNames: []string{"Crime"},
			Aliases:      []string{"heist", "gangster", "noir", "mafia"},
			Keywords:     []string{"crime", "criminal", "detective", "police", "cop", "murder", "heist", "gang", "mafia", "mob", "drug", "cartel", "robbery", "fbi", "killer"},
		},
		{
			Name:         "documentary",
			CatalogNames: []string{"Documentary"},
			Aliases:      []string{"documentaries", "docuseries", "doc", "docs"},
			Keywords:     []string{"documentary", "true story", "real life", "interviews", "footage", "chronicles"},
		},
		{
			Name:         "drama",
			CatalogNames: []string{"Drama"},
			Aliases:      []string{"dramas", "dramatic"},
			Keywords:     []string{"drama", "struggle", "struggles", "relationship", "emotional", "life", "tragedy", "grief", "family"},
		},
		{
			Name:         "family",
			CatalogNames: []string{"Family", "Kids"},
			Aliases:      []string{"kids", "children", "childrens"},
			Keywords:     []string{"family", "kids", "children", "friendship", "heartwarming", "holiday"},
		},
		{
			Name:         "fantasy",
			CatalogNames: []string{"Fantasy", "Sci-Fi & Fantasy"},
			Aliases:      []string{"fantasies", "sword and sorcery"},
			Keywords:     []string{"fantasy", "magic", "magical", "wizard", "dragon", "kingdom", "sorcerer", "myth", "enchanted", "witch"},
		},
		{
			Name:         "history",
			CatalogNames: []string{"History", "War & Politics", "Documentary"},
			Aliases:      []string{"historical", "period", "period piece", "biopic"},
			Keywords:     []string{"history", "historical", "true story", "century", "empire", "biography", "king", "queen"},
		},
		{
			Name:         "horror",
			CatalogNames: []string{"Horror", "Mystery"},
			Aliases:      []string{"slasher", "slashers", "haunted house"},
			Keywords:     []string{"horror", "terrifying", "haunted", "ghost", "demon", "evil", "monster", "nightmare", "supernatural", "possessed", "zombie", "vampire", "scary"},
		},
		{
			Name:         "music",
			CatalogNames: []string{"Music"},
			Aliases:      []string{"musical", "musicals"},
			Keywords:     []string{"music", "musical", "band", "singer", "song", "songs", "concert", "dance", "musician"},
		},
		{
			Name:         "mystery",
			CatalogNames: []string{"Mystery"},
			Aliases:      []string{"mysteries", "whodunit", "whodunnit", "detective"},
			Keywords:     []string{"mystery", "mysterious", "secret", "secrets", "investigation", "clue", "disappearance", "detective", "puzzle"},
		},
		{
			Name:         "romance",
			CatalogNames: []string{"Romance", "Soap", "Drama"},
			Aliases:      []string{"romances", "love story", "love stories"},
			Keywords:     []string{"romance", "romantic", "love", "falls in love", "lovers", "wedding", "heart"},
		},
		{
			Name:         "science fiction",
			CatalogNames: []string{"Science Fiction", "Sci-Fi & Fantasy"},
			Aliases:      []string{"sci fi", "scifi", "sf", "science fiction", "space opera", "cyberpunk"},
			Keywords:     []string{"science fiction", "sci fi", "space", "alien", "aliens", "future", "futuristic", "robot", "planet", "galaxy", "time travel", "dystopian", "scientist", "technology"},
		},
		{
			Name:         "thriller",
			CatalogNames: []string{"Thriller", "Mystery", "Crime"},
			Aliases:      []string{"thrillers", "suspense", "psychological thriller"},
			Keywords:     []string{"thriller", "suspense", "conspiracy", "chase", "deadly", "danger", "dangerous", "tense", "kidnapped", "hunt"},
		},
		{
			Name:         "war",
			CatalogNames: []string{"War", "War & Politics"},
			Aliases:      []string{"military", "wwii", "ww2"},
			Keywords:     []string{"war", "soldier", "soldiers", "army", "battle", "military", "wwii", "world war"},
		},
		{
			Name:         "western",
			CatalogNames: []string{"Western"},
			Aliases:      []string{"westerns", "cowboy"},
			Keywords:     []string{"western", "cowboy", "outlaw", "frontier", "sheriff", "ranch"},
		},
	}
}

func defaultMoods() []Mood {
	return []Mood{
		{Name: "dark", Aliases: []string{"disturbing", "twisted"}, Genres: []string{"thriller", "horror", "crime"}},
		{Name: "feel-good", Aliases: []string{"feel good", "feelgood", "uplifting", "heartwarming", "wholesome", "happy", "cheerful"}, Genres: []string{"comedy", "family", "music"}},
		{Name: "funny", Aliases: []string{"hilarious", "lighthearted", "light hearted", "silly"}, Genres: []string{"comedy"}},
		{Name: "scary", Aliases: []string{"spooky", "creepy", "terrifying", "frightening"}, Genres: []string{"horror", "thriller"}},
		{Name: "romantic", Aliases: []string{"sweet", "date night"}, Genres: []string{"romance"}},
		{Name: "gritty", Aliases: []string{"grim", "bleak", "violent", "raw"}, Genres: []string{"crime", "drama", "thriller"}},
		{Name: "mind-bending", Aliases: []string{"mind bending", "mindbending", "cerebral", "trippy", "twisty", "thought provoking"}, Genres: []string{"science fiction", "mystery", "thriller"}},
		{Name: "epic", Aliases: []string{"grand", "sweeping"}, Genres: []string{"adventure", "action", "fantasy", "history"}},
		{Name: "sad", Aliases: []string{"tearjerker", "tear jerker", "melancholic", "heartbreaking"}, Genres: []string{"drama", "romance"}},
		{Name: "exciting", Aliases: []string{"thrilling", "adrenaline", "intense"}, Genres: []string{"action", "adventure", "thriller"}},
		{Name: "inspiring", Aliases: []string{"inspirational", "motivational"}, Genres: []string{"drama", "history", "documentary"}},
		{Name: "cozy", Aliases: []string{"cosy", "comfort", "comforting"}, Genres: []string{"family", "comedy", "romance"}},
		{Name: "relaxing", Aliases: []string{"chill", "easy watching", "light"}, Genres: []string{"comedy", "family", "animation"}},
		{Name: "suspenseful", Aliases: []string{"tense", "edge of your seat"}, Genres: []string{"thriller", "mystery"}},
	}
}
