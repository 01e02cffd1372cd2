package models

type Category string

const (
	CategoryResourcePacks Category = "resource_packs"
	CategoryAddons        Category = "addons"
	CategoryMaps          Category = "maps"
	CategoryMods          Category = "mods"
	CategorySkins         Category = "skins"
	CategoryArticles      Category = "articles"
	CategoryNews          Category = "news"
)

type categoryRules struct {
	downloadable bool
}

var categories = map[Category]categoryRules{
	CategoryResourcePacks: {downloadable: true},
	CategoryAddons:        {downloadable: true},
	CategoryMaps:          {downloadable: true},
	CategoryMods:          {downloadable: true},
	CategorySkins:         {downloadable: true},
	CategoryArticles:      {downloadable: false},
	CategoryNews:          {downloadable: false},
}

func (c Category) IsValid() bool {
	_, ok := categories[c]
	return ok
}

// IsDownloadable reports whether materials of this category ship versions
// with files.
func (c Category) IsDownloadable() bool {
	return categories[c].downloadable
}

type Edition string

const (
	EditionJava    Edition = "java"
	EditionBedrock Edition = "bedrock"
)

func (e Edition) IsValid() bool {
	return e == EditionJava || e == EditionBedrock
}
