package domain

// AccessLevel определяет уровень доступа к ресурсу. Пустое значение
// означает отсутствие доступа.
type AccessLevel string

const (
	AccessLevelNone      AccessLevel = ""
	AccessLevelViewer    AccessLevel = "viewer"
	AccessLevelCommenter AccessLevel = "commenter"
	AccessLevelEditor    AccessLevel = "editor"
	AccessLevelOwner     AccessLevel = "owner"
)

// accessLevelRank — глобальная таблица порядка уровней доступа.
// Уровни строго упорядочены: viewer < commenter < editor < owner.
var accessLevelRank = map[AccessLevel]int{
	AccessLevelNone:      0,
	AccessLevelViewer:    1,
	AccessLevelCommenter: 2,
	AccessLevelEditor:    3,
	AccessLevelOwner:     4,
}

// Valid проверяет, что уровень является известным ненулевым уровнем доступа.
func (l AccessLevel) Valid() bool {
	return l != AccessLevelNone && accessLevelRank[l] > 0
}

// AtLeast сравнивает два уровня доступа по общему порядку.
func (l AccessLevel) AtLeast(want AccessLevel) bool {
	return accessLevelRank[l] >= accessLevelRank[want]
}

// MaxLevel возвращает максимальный из переданных уровней. Уровни доступа
// складываются только вверх: несколько источников никогда не понижают
// итоговый уровень.
func MaxLevel(levels ...AccessLevel) AccessLevel {
	max := AccessLevelNone
	for _, l := range levels {
		if accessLevelRank[l] > accessLevelRank[max] {
			max = l
		}
	}
	return max
}
